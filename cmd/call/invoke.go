package call

import (
	"fmt"
	"github.com/spf13/cobra"
)

var (
	invokeCmd = &cobra.Command{
		Use:   "invoke [address:port] [service] [method] [payload]",
		Short: "Invokes service.method on a host and prints the response payload",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			var payload []byte
			if len(args) == 4 {
				payload = []byte(args[3])
			}

			ctx, cancel := requestContext(cmd.Context())
			defer cancel()

			resp, err := rpcClient.Call(ctx, h, args[1], args[2], payload)
			if err != nil {
				return err
			}
			fmt.Println(string(resp))
			return nil
		},
	}
)
