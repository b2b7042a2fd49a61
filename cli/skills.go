package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anjiri1684/skill_exchange/models"
)

func NewSkillsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Browse and manage skills",
	}
	cmd.AddCommand(newSkillsListCommand(rootOpts))
	cmd.AddCommand(newSkillsShowCommand(rootOpts))
	cmd.AddCommand(newSkillsMineCommand(rootOpts))
	cmd.AddCommand(newSkillsCreateCommand(rootOpts))
	cmd.AddCommand(newSkillsUpdateCommand(rootOpts))
	cmd.AddCommand(newSkillsDeleteCommand(rootOpts))
	return cmd
}

func newSkillsListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter models.SkillFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the skill catalog",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			skills, err := rt.store.FetchSkills(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return rt.out.Emit(skills, func(w io.Writer) { printSkills(w, skills) })
		}),
	}
	cmd.Flags().StringVar(&filter.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&filter.Search, "search", "", "match title or description")
	return cmd
}

func newSkillsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <skill-id>",
		Short: "Show one skill with its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			skill, err := rt.store.FetchSkill(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.out.Emit(skill, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", skill.Title, skill.Category)
				fmt.Fprintf(w, "  by %s, %.2f per hour\n", refName(skill.CreatedBy), skill.PricePerHour)
				fmt.Fprintf(w, "  %s\n", skill.Description)
				printReviews(w, skill.Reviews)
			})
		}),
	}
}

func newSkillsMineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the skills you teach",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			skills, err := rt.store.FetchInstructorSkills(cmd.Context())
			if err != nil {
				return err
			}
			return rt.out.Emit(skills, func(w io.Writer) { printSkills(w, skills) })
		}),
	}
}

func skillFlags(cmd *cobra.Command, in *models.SkillInput) {
	cmd.Flags().StringVar(&in.Title, "title", "", "skill title")
	cmd.Flags().StringVar(&in.Description, "description", "", "what the sessions cover")
	cmd.Flags().StringVar(&in.Category, "category", "", "catalog category")
	cmd.Flags().Float64Var(&in.PricePerHour, "price", 0, "price per hour")
}

func newSkillsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var in models.SkillInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new skill",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			skill, err := rt.store.CreateSkill(cmd.Context(), in)
			if err != nil {
				return err
			}
			return rt.out.Emit(skill, func(w io.Writer) {
				fmt.Fprintf(w, "Created skill %s (%s).\n", skill.Title, skill.ID)
			})
		}),
	}
	skillFlags(cmd, &in)
	return cmd
}

func newSkillsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var in models.SkillInput
	cmd := &cobra.Command{
		Use:   "update <skill-id>",
		Short: "Replace a skill's details",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			skill, err := rt.store.UpdateSkill(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return rt.out.Emit(skill, func(w io.Writer) {
				fmt.Fprintf(w, "Updated skill %s.\n", skill.Title)
			})
		}),
	}
	skillFlags(cmd, &in)
	return cmd
}

func newSkillsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <skill-id>",
		Short: "Remove a skill and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.store.DeleteSkill(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rt.out.Message("Deleted skill %s.", args[0])
		}),
	}
}
