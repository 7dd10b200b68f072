package util

import (
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/host/redis"
	"github.com/ValentinKolb/dRPC/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the env files and configures viper to read DRPC_<flag> variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("drpc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds the connection manager flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultConnectConfig()

	key := "local"
	cmd.PersistentFlags().String(key, host.LoopAddress, WrapString("The advertised address of this machine. Hosts with this address are connected via the loopback interface"))

	key = "hosts"
	cmd.PersistentFlags().String(key, "", WrapString("Optional TOML file with [[hosts]] entries (address, port, sid) that are registered for reconnection"))

	key = "redis"
	cmd.PersistentFlags().Bool(key, false, WrapString("Use the Redis host directory (configured via REDIS_ADDR and DRPC_HOSTS_KEY_PREFIX) instead of the in-memory one"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, defaults.ConnectTimeoutMillis, WrapString("The connect timeout in milliseconds"))

	key = "request-timeout"
	cmd.PersistentFlags().Int(key, defaults.RequestTimeoutMillis, WrapString("The request timeout in milliseconds"))

	key = "write-timeout"
	cmd.PersistentFlags().Int(key, defaults.WriteTimeoutMillis, WrapString("The write timeout in milliseconds (0 = none)"))

	key = "max-frame-length"
	cmd.PersistentFlags().Int(key, defaults.MaxFrameLength, WrapString("The maximum length of a frame in bytes"))

	key = "send-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket send buffer (in KB, 0 = OS default)"))

	key = "recv-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket receive buffer (in KB, 0 = OS default)"))

	key = "establish-workers"
	cmd.PersistentFlags().Int(key, defaults.EstablishWorkers, WrapString("Number of reconnection workers"))

	key = "establish-loop"
	cmd.PersistentFlags().Bool(key, defaults.EstablishLoop, WrapString("Connect hosts on the local machine via the loopback interface"))

	key = "event-loop-shared"
	cmd.PersistentFlags().Bool(key, defaults.EventLoopShared, WrapString("Share the event loops between all connections"))

	key = "event-loop-workers"
	cmd.PersistentFlags().Int(key, defaults.EventLoopWorkers, WrapString("Number of event loops per group"))

	key = "release-workers"
	cmd.PersistentFlags().Int(key, defaults.ReleaseWorkers, WrapString("Number of workers releasing closed connections"))

	key = "timeout-threshold"
	cmd.PersistentFlags().Int(key, defaults.TimeoutThreshold, WrapString("Close a connection after a request timed out this many times (0 = never)"))

	key = "compression"
	cmd.PersistentFlags().String(key, "", WrapString("Frame compression (none, zstd), must match the server"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// GetConnectConfig reads the connection manager configuration from viper
func GetConnectConfig() *common.ConnectConfig {
	conf := common.DefaultConnectConfig()
	conf.ConnectTimeoutMillis = viper.GetInt("connect-timeout")
	conf.RequestTimeoutMillis = viper.GetInt("request-timeout")
	conf.WriteTimeoutMillis = viper.GetInt("write-timeout")
	conf.MaxFrameLength = viper.GetInt("max-frame-length")
	conf.SendBufferSize = viper.GetInt("send-buffer") * 1024
	conf.RecvBufferSize = viper.GetInt("recv-buffer") * 1024
	conf.EstablishWorkers = viper.GetInt("establish-workers")
	conf.EstablishLoop = viper.GetBool("establish-loop")
	conf.EventLoopShared = viper.GetBool("event-loop-shared")
	conf.EventLoopWorkers = viper.GetInt("event-loop-workers")
	conf.ReleaseWorkers = viper.GetInt("release-workers")
	conf.TimeoutThreshold = viper.GetInt("timeout-threshold")
	conf.Compression = viper.GetString("compression")
	conf.LogLevel = viper.GetString("log-level")
	return &conf
}

// GetLocalHost returns the advertised identity of this machine
func GetLocalHost() host.Host {
	return host.New(viper.GetString("local"), 0, "")
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	s, err := serializer.ByName(viper.GetString("serializer"))
	if err != nil {
		return nil, fmt.Errorf("invalid serializer: %w", err)
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Hosts
// --------------------------------------------------------------------------

// Directory is a host directory that also serves as reconnection queue and host registry
type Directory interface {
	host.IHostDirectory
	host.IHostQueue
	host.IHostRegistry
}

// GetDirectory creates the host directory based on configuration
func GetDirectory() (Directory, error) {
	if viper.GetBool("redis") {
		return redis.NewFromEnv()
	}
	return host.NewMemoryDirectory(time.Second, time.Second), nil
}

type hostsFile struct {
	Hosts []host.Host `toml:"hosts"`
}

// LoadHosts reads a TOML hosts file:
//
//	[[hosts]]
//	address = "10.0.0.2"
//	port = 8080
//	sid = "node-2"
func LoadHosts(path string) ([]host.Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hosts file: %w", err)
	}

	var file hostsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse hosts file %s: %w", path, err)
	}

	for i, h := range file.Hosts {
		if h.Address == "" || h.Port <= 0 || h.Port > 65535 {
			return nil, fmt.Errorf("invalid host #%d in %s: %s", i+1, path, h)
		}
	}
	return file.Hosts, nil
}
