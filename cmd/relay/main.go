package main

import (
	"os"

	"github.com/spf13/cobra"

	servecmder "github.com/conduitlabs/relay/cmd/relay/serve"
)

func main() {
	root := &cobra.Command{
		Use:   "relay",
		Short: "LLM conversation relay",
		Long: `relay is a thin backend that forwards chat conversations to an LLM
provider's streaming endpoint and relays the token stream back to the
caller as server-sent events.`,
	}

	root.AddCommand(servecmder.NewServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
