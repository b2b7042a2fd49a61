package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anjiri1684/skill_exchange/models"
)

func NewReviewsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Read and write skill reviews",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <skill-id>",
		Short: "List a skill's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			reviews, err := rt.store.FetchSkillReviews(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.out.Emit(reviews, func(w io.Writer) { printReviews(w, reviews) })
		}),
	})
	cmd.AddCommand(newReviewsAddCommand(rootOpts))
	return cmd
}

func newReviewsAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in models.ReviewInput
	cmd := &cobra.Command{
		Use:   "add <skill-id>",
		Short: "Rate a skill, replacing your earlier review",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			in.SkillID = args[0]
			r, err := rt.store.AddReview(cmd.Context(), in)
			if err != nil {
				return err
			}
			return rt.out.Emit(r, func(w io.Writer) {
				fmt.Fprintf(w, "Thanks! You rated this skill %d/5.\n", r.Rating)
			})
		}),
	}
	cmd.Flags().IntVar(&in.Rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&in.Comment, "comment", "", "what you thought")
	return cmd
}
