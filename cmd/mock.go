package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chaos-io/eraser-bench/mockserver"
	"github.com/chaos-io/eraser-bench/util"
)

var mockOpts struct {
	Token   string
	BaseURL string
}

var mockCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Serve a local stand-in for the eraser API",
	Example: `  eraser-bench mock-server --addr :8089 --token dev
  eraser-bench benchmark --api-url http://localhost:8089/v1/eraser --api-token dev`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := mockserver.New(mockserver.Config{Token: mockOpts.Token, BaseURL: mockOpts.BaseURL}, util.Logger)
		return s.Serve(cmd.Context(), cfg.MockAddr)
	},
}

func init() {
	f := mockCmd.Flags()
	f.String("addr", "", "listen address (default :8089)")
	f.StringVar(&mockOpts.Token, "token", "", "required api_token header; empty accepts any")
	f.StringVar(&mockOpts.BaseURL, "base-url", "", "prefix of returned result URLs (default http://<request host>)")

	bindFlags(mockCmd, map[string]string{"mock_addr": "addr"}, false)
	rootCmd.AddCommand(mockCmd)
}
