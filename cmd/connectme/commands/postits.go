package commands

import (
	"context"
	"strconv"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"connectme/cmd/connectme/output"
	"connectme/models"
	"connectme/state"
)

var draft struct {
	title    string
	content  string
	category string
	campus   string
	date     string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a new post-it",
	RunE: withApp(func(ctx context.Context, a *app) error {
		p, err := a.controller.Create(ctx, models.Draft{
			Title:    draft.title,
			Content:  draft.content,
			Category: models.Category(draft.category),
			Campus:   models.Campus(draft.campus),
			Date:     draft.date,
		})
		if err != nil {
			return err
		}
		output.Success("post-it %s published on %s", p.ID, p.Campus)
		return nil
	}),
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <x> <y>",
	Short: "Move a post-it on the board",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return errors.NotValidf("x %q", args[1])
		}
		y, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return errors.NotValidf("y %q", args[2])
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.controller.Move(ctx, args[0], x, y); err != nil {
				return err
			}
			output.Success("post-it %s moved", args[0])
			return nil
		})(cmd, args)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <id>",
	Short: "Join a post-it, or leave it if already joined",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			joined, err := a.controller.ToggleParticipation(ctx, args[0])
			if err != nil {
				return err
			}
			// Результат сохранения известен только после ответа хранилища.
			a.controller.Wait()
			if a.controller.IsJoined(args[0]) != joined {
				output.Error("participation change for %s was not saved", args[0])
				return nil
			}
			if joined {
				output.Success("joined post-it %s", args[0])
			} else {
				output.Success("left post-it %s", args[0])
			}
			return nil
		})(cmd, args)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a post-it from the board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.controller.Delete(ctx, args[0]); err != nil {
				return err
			}
			output.Success("post-it %s removed", args[0])
			return nil
		})(cmd, args)
	},
}

var sectionCmd = &cobra.Command{
	Use:       "section [name]",
	Short:     "Show or change the open section",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: state.Sections,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if len(args) == 0 {
				output.Info("section: %s", a.controller.Section())
				return nil
			}
			if err := a.controller.SetSection(args[0]); err != nil {
				return err
			}
			output.Success("section: %s", a.controller.Section())
			return nil
		})(cmd, args)
	},
}

func init() {
	createCmd.Flags().StringVar(&draft.title, "title", "", "Title")
	createCmd.Flags().StringVar(&draft.content, "content", "", "Text of the post-it (required)")
	createCmd.Flags().StringVar(&draft.category, "category", "", "Category (required)")
	createCmd.Flags().StringVar(&draft.campus, "campus", string(models.CampusLeonardo), "Campus")
	createCmd.Flags().StringVar(&draft.date, "date", "", "Free-form date shown on the post-it")
	rootCmd.AddCommand(createCmd, moveCmd, joinCmd, deleteCmd, sectionCmd)
}
