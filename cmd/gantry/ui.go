package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/run"
	"github.com/gantry-dev/gantry/internal/ticket"
	"github.com/gantry-dev/gantry/internal/web"
)

func uiCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the web UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			server, err := web.NewServer(ticket.NewStore(storeDB), run.NewStore(storeDB))
			if err != nil {
				return err
			}

			addr := fmt.Sprintf(":%d", port)
			fmt.Printf("Starting UI on http://localhost%s\n", addr)
			return http.ListenAndServe(addr, server.Routes())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	return cmd
}
