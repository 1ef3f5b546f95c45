package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MuganziJames/Umoja-AI/internal/app"
	"github.com/MuganziJames/Umoja-AI/internal/gateway"
	"github.com/MuganziJames/Umoja-AI/internal/nav"
	"github.com/MuganziJames/Umoja-AI/internal/stories"
)

const gatewayTimeout = 10 * time.Second

func newRootCommand(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:           "umoja",
		Short:         "Umoja Voices of Change client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newSubmitCommand(a),
		newStoriesCommand(a),
		newChatCommand(a),
	)
	return root
}

func newLoginCommand(a *app.App) *cobra.Command {
	var email, password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and establish a local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.WaitForGateway(ctx, gatewayTimeout); err != nil {
				return fmt.Errorf("backend not ready: %w", err)
			}

			outcome := a.Flow.SignIn(ctx, email, password, remember)
			if len(outcome.Fields) > 0 {
				for _, fe := range outcome.Fields {
					fmt.Fprintf(os.Stderr, "%s: %s\n", fe.Field, fe.Message)
				}
				return fmt.Errorf("validation failed")
			}
			if !outcome.Success {
				return fmt.Errorf("%s", outcome.Message)
			}

			fmt.Println(outcome.Message)
			fmt.Printf("next: %s\n", outcome.RedirectTo)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&remember, "remember", false, "keep the session alive for 48h of inactivity instead of 24h")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(a *app.App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := func() bool {
				if yes {
					return true
				}
				fmt.Print("Are you sure you want to logout? [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				line, _ := reader.ReadString('\n')
				return strings.EqualFold(strings.TrimSpace(line), "y")
			}

			redirect, ok := a.Guard.Logout(cmd.Context(), confirm)
			if !ok {
				fmt.Println("cancelled")
				return nil
			}
			fmt.Printf("signed out, next: %s\n", redirect)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newWhoamiCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := a.Sessions.GetSession()
			if sess == nil {
				fmt.Println("not signed in")
				return nil
			}

			view := nav.ViewFor(sess.User)
			fmt.Printf("%s <%s>\n", view.DisplayName, sess.User.Email)
			fmt.Printf("session expires in %s\n", a.Sessions.RemainingTime().Round(time.Minute))
			if a.Sessions.ExpiringSoon() {
				fmt.Println("warning: session expiring soon")
			}
			return nil
		},
	}
}

func newSubmitCommand(a *app.App) *cobra.Command {
	var in stories.SubmitInput

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a story for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.WaitForGateway(ctx, gatewayTimeout); err != nil {
				return fmt.Errorf("backend not ready: %w", err)
			}

			result := a.Stories.Submit(ctx, in)
			if !result.Success {
				if result.Moderation != nil {
					fmt.Fprintf(os.Stderr, "moderation: %s\n", result.Moderation.Reason)
				}
				return result.Err
			}

			fmt.Printf("submitted for review: %s (%s)\n", result.Story.Title, result.Story.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "story title")
	cmd.Flags().StringVar(&in.Content, "content", "", "story text")
	cmd.Flags().StringVar(&in.Category, "category", "", "category (auto-detected when omitted)")
	cmd.Flags().StringVar(&in.AuthorName, "author", "", "display name for the byline")
	cmd.Flags().BoolVar(&in.IsAnonymous, "anonymous", false, "hide the byline")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("content")
	return cmd
}

func newStoriesCommand(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stories",
		Short: "Browse published stories",
	}

	var category string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List published stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.WaitForGateway(ctx, gatewayTimeout); err != nil {
				return fmt.Errorf("backend not ready: %w", err)
			}

			result := a.DB.Stories(ctx, stories.Filter{Category: category, Limit: limit})
			if !result.Success {
				return result.Err
			}
			printStories(result.Stories)
			return nil
		},
	}
	list.Flags().StringVar(&category, "category", "", "filter by category")
	list.Flags().IntVar(&limit, "limit", 0, "maximum stories to return")

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Search published stories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.WaitForGateway(ctx, gatewayTimeout); err != nil {
				return fmt.Errorf("backend not ready: %w", err)
			}

			result := a.DB.SearchStories(ctx, args[0])
			if !result.Success {
				return result.Err
			}
			printStories(result.Stories)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Read one story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.WaitForGateway(ctx, gatewayTimeout); err != nil {
				return fmt.Errorf("backend not ready: %w", err)
			}

			result := a.DB.StoryByID(ctx, args[0])
			if !result.Success {
				return result.Err
			}

			s := result.Story
			fmt.Printf("%s\nby %s · %s · %s\n\n%s\n", s.Title, s.AuthorName, s.Category, s.CreatedAt, s.Content)
			return nil
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print story changes as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.WaitForGateway(ctx, gatewayTimeout); err != nil {
				return fmt.Errorf("backend not ready: %w", err)
			}

			sub, err := a.DB.SubscribeStories(ctx, 5*time.Second, func(change gateway.Change) {
				fmt.Printf("%s  %s — %s\n", change.Type, change.Story.ID, change.Story.Title)
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			<-ctx.Done()
			return nil
		},
	}

	cmd.AddCommand(list, search, show, watch)
	return cmd
}

func printStories(list []stories.Story) {
	if len(list) == 0 {
		fmt.Println("no stories found")
		return
	}
	for _, s := range list {
		summary := s.Summary
		if summary == "" {
			summary = stories.SanitizeText(s.Content, 80)
		}
		fmt.Printf("%s  [%s] %s — %s\n", s.ID, s.Category, s.Title, summary)
	}
}

func newChatCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk with the support assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session := a.NewChat()
			defer session.SaveTranscript(ctx)

			fmt.Println("Umoja support chat. Empty line to exit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return nil
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					return nil
				}

				reply, err := session.Send(ctx, line)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%v\n", err)
					continue
				}
				if reply.IsCrisis {
					fmt.Println("If you are in crisis, call 988 (Suicide & Crisis Lifeline) or text HOME to 741741.")
				}
				fmt.Println(reply.Message)
			}
		},
	}
}
