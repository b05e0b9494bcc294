package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/ticket"
)

func ticketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Manage gantry tickets",
	}
	cmd.AddCommand(ticketAddCmd())
	cmd.AddCommand(ticketListCmd())
	cmd.AddCommand(ticketShowCmd())
	cmd.AddCommand(ticketDoneCmd())
	cmd.AddCommand(ticketCommentCmd())
	cmd.AddCommand(ticketImportCmd())
	return cmd
}

func ticketAddCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a ticket",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title is required")
			}
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := ticket.NewStore(storeDB)
			key, err := store.Add(cmd.Context(), title, description)
			if err != nil {
				return err
			}
			log.Info().Msgf("ticket %s added", key)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "ticket description")
	return cmd
}

func ticketListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := ticket.NewStore(storeDB)
			var statusPtr *string
			if status != "" {
				statusPtr = &status
			}
			items, err := store.List(cmd.Context(), statusPtr)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				log.Info().Msg("no tickets")
				return nil
			}
			for _, item := range items {
				_, _ = io.WriteString(os.Stdout, fmt.Sprintf("%s\t%s\t%s\n", item.Key, item.Status, item.Title))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open|reopened|in_progress|done|failed)")
	return cmd
}

func ticketShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Show a ticket with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := ticket.NewStore(storeDB)
			tk, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", tk.Key, tk.Status, tk.Title)
			if tk.Description != "" {
				fmt.Printf("\n%s\n", tk.Description)
			}
			for _, c := range tk.Comments {
				fmt.Printf("\n[%s] %s:\n%s\n", c.CreatedAt, c.Author, c.Body)
			}
			return nil
		},
	}
}

func ticketDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <key>",
		Short: "Mark a ticket as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := ticket.NewStore(storeDB)
			if err := store.Transition(cmd.Context(), args[0], ticket.StatusDone); err != nil {
				return err
			}
			log.Info().Msgf("ticket %s done", args[0])
			return nil
		},
	}
}

func ticketCommentCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "comment <key> <body>",
		Short: "Add a comment to a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.TrimSpace(strings.Join(args[1:], " "))
			if body == "" {
				return fmt.Errorf("comment body is required")
			}
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := ticket.NewStore(storeDB)
			if err := store.AddComment(cmd.Context(), args[0], author, body); err != nil {
				return err
			}
			log.Info().Msgf("comment added to %s", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "user", "comment author")
	return cmd
}

func ticketImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tickets from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeDB, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			store := ticket.NewStore(storeDB)
			keys, err := store.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			log.Info().Msgf("imported %d tickets: %s", len(keys), strings.Join(keys, ", "))
			return nil
		},
	}
}
