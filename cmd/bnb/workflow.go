package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/brandinbox/pkg/workflow"
)

// drive loads id, runs action and optionally follows the job until it settles.
func (a *app) drive(cmd *cobra.Command, id string, wait bool, action func(*workflow.Controller) error) error {
	ctx := cmd.Context()
	ctrl, err := a.controller(ctx, id)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := action(ctrl); err != nil {
		return err
	}
	if !wait {
		fmt.Fprintln(cmd.OutOrStdout(), renderState(ctrl.State()))
		return nil
	}
	return follow(ctx, cmd.OutOrStdout(), ctrl)
}

// follow prints each status the controller observes until polling stops.
func follow(ctx context.Context, out io.Writer, ctrl *workflow.Controller) error {
	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	current := ctrl.State()
	fmt.Fprintln(out, renderBadge(current.Badge()))
	if !current.Polling {
		fmt.Fprintln(out, renderState(current))
		return nil
	}

	idle := make(chan error, 1)
	go func() { idle <- ctrl.WaitIdle(ctx) }()

	last := current.Status()
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if st.Status() != last {
				last = st.Status()
				fmt.Fprintln(out, renderBadge(st.Badge()))
			}
		case err := <-idle:
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderState(ctrl.State()))
			return nil
		}
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "generate <id>",
		Short: "Generate marketing media, or retry after an error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.drive(cmd, args[0], wait, func(ctrl *workflow.Controller) error {
				if !ctrl.State().CanGenerate() {
					return fmt.Errorf("media cannot be generated while %s", ctrl.State().Badge().Label)
				}
				return ctrl.GenerateMedia(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for generation to finish")
	return cmd
}

func newRegenerateCmd(a *app) *cobra.Command {
	var (
		video bool
		wait  bool
	)
	cmd := &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Regenerate the images (or the video) of a listing in review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.drive(cmd, args[0], wait, func(ctrl *workflow.Controller) error {
				if !ctrl.State().CanRegenerate() {
					return fmt.Errorf("media can only be regenerated once it is ready, listing is %s", ctrl.State().Badge().Label)
				}
				if video {
					return ctrl.RegenerateVideo(cmd.Context())
				}
				return ctrl.RegenerateImages(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVar(&video, "video", false, "regenerate the video instead of the images")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for generation to finish")
	return cmd
}

func newApproveCmd(a *app) *cobra.Command {
	var (
		selected []int
		all      bool
	)
	cmd := &cobra.Command{
		Use:     "approve <id>",
		Aliases: []string{"review"},
		Short:   "Pick generated images and approve the media",
		Long: "Without --select or --all the generated images are listed with their indices " +
			"and nothing is approved.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			ctrl, err := a.controller(ctx, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			review := ctrl.BeginReview()
			defer review.End()
			if all {
				review.SelectAll()
			}
			for _, i := range selected {
				if err := review.Toggle(i); err != nil {
					return fmt.Errorf("image %d: %w", i, err)
				}
			}

			st := ctrl.State()
			if !all && len(selected) == 0 && len(st.Listing.ImageURLs()) > 0 {
				fmt.Fprintln(out, renderState(st))
				fmt.Fprintln(out, mutedStyle.Render("Pass --select 0,2 or --all to approve."))
				return nil
			}
			if !st.CanApprove() {
				if len(st.Listing.ImageURLs()) > 0 && len(st.Selection) == 0 {
					return workflow.ErrNoSelection
				}
				return fmt.Errorf("media cannot be approved while %s", st.Badge().Label)
			}
			fmt.Fprintln(out, renderPreview(workflow.BuildPreview(ctrl.Listing(), review)))
			if err := ctrl.Approve(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, renderState(ctrl.State()))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&selected, "select", nil, "zero-based indices of the images to keep")
	cmd.Flags().BoolVar(&all, "all", false, "keep every generated image")
	cmd.MarkFlagsMutuallyExclusive("select", "all")
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish an approved listing to eBay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.drive(cmd, args[0], wait, func(ctrl *workflow.Controller) error {
				if !ctrl.State().CanPublish() {
					return fmt.Errorf("only approved listings can be published, listing is %s", ctrl.State().Badge().Label)
				}
				return ctrl.Publish(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for publishing to finish")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a listing until its background job settles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.drive(cmd, args[0], true, func(*workflow.Controller) error { return nil })
		},
	}
}
