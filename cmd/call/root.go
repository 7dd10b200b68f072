package call

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/cmd/util"
	"github.com/ValentinKolb/dRPC/rpc/client"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/connect"
	"github.com/ValentinKolb/dRPC/rpc/host"
	"github.com/ValentinKolb/dRPC/rpc/policy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcClient *client.RPCClient

	// CallCommands represents the call command group
	CallCommands = &cobra.Command{
		Use:                "call",
		Short:              "Invoke remote services",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the call command
	util.SetupRPCClientFlags(CallCommands)

	CallCommands.PersistentFlags().String("token", "", util.WrapString("Auth token attached to every request"))
	CallCommands.PersistentFlags().String("sid", "", util.WrapString("Session id of the target host"))

	// Add subcommands
	CallCommands.AddCommand(invokeCmd)
	CallCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the RPC client and registers the hosts of the hosts file
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetConnectConfig()
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	directory, err := util.GetDirectory()
	if err != nil {
		return err
	}

	opts := []connect.Option{
		connect.WithHosts(directory),
		connect.WithSerializer(s),
	}
	if token := viper.GetString("token"); token != "" {
		opts = append(opts, connect.WithTokenContext(policy.StaticToken{Token: token}))
	}

	// Create the client
	rpcClient, err = client.NewRPCClient(util.GetLocalHost(), *config, opts...)
	if err != nil {
		return err
	}

	// Register static hosts, the reconnection workers connect them in the background
	if path := viper.GetString("hosts"); path != "" {
		hosts, err := util.LoadHosts(path)
		if err != nil {
			return err
		}
		for _, h := range hosts {
			if err := directory.Register(cmd.Context(), h); err != nil {
				return fmt.Errorf("failed to register %s: %w", h, err)
			}
		}
	}

	return nil
}

func closeClient(_ *cobra.Command, _ []string) error {
	if rpcClient != nil {
		rpcClient.Close()
	}
	return nil
}

// parseTarget parses the target host argument ("address:port")
func parseTarget(arg string) (host.Host, error) {
	h, err := host.Parse(arg, viper.GetString("sid"))
	if err != nil {
		return host.Host{}, fmt.Errorf("invalid target %q: %w", arg, err)
	}
	return h, nil
}

// requestContext bounds a single command by twice the request timeout
func requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	config := util.GetConnectConfig()
	return context.WithTimeout(parent, 2*(config.ConnectTimeout()+config.RequestTimeout()))
}
