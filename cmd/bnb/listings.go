package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/angelmondragon/brandinbox/pkg/client"
	"github.com/angelmondragon/brandinbox/pkg/enums"
	"github.com/angelmondragon/brandinbox/pkg/forms"
	"github.com/angelmondragon/brandinbox/pkg/workflow"
)

// listingFlags binds the editor fields to command flags.
type listingFlags struct {
	input  forms.ListingInput
	images []string
}

func (f *listingFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.input.Title, "title", "", "listing title")
	fs.StringVar(&f.input.Description, "description", "", "listing description")
	fs.StringVar(&f.input.CategoryID, "category", "", "eBay category id (see `bnb options`)")
	fs.StringVar(&f.input.ConditionID, "condition", "", "eBay condition id (see `bnb options`)")
	fs.StringVar(&f.input.Price, "price", "", "price in USD")
	fs.StringVar(&f.input.Quantity, "quantity", "", "available quantity")
	fs.StringVar(&f.input.ProductPhotoURL, "product-photo-url", "", "primary product photo URL")
	fs.StringSliceVar(&f.input.UploadedImages, "image-url", nil, "already uploaded image URL (repeatable)")
	fs.StringSliceVar(&f.images, "image", nil, "local image to upload (repeatable)")
	fs.StringVar(&f.input.ModelAvatarURL, "model-avatar-url", "", "model avatar URL")
	fs.StringVar(&f.input.TargetAudience, "target-audience", "", "who the product is for")
	fs.StringVar(&f.input.ProductFeatures, "features", "", "product features")
	fs.StringVar(&f.input.VideoSetting, "video-setting", "", "video scene setting")
	fs.StringVar(&f.input.ImagePrompt, "image-prompt", "", "image generation prompt")
	fs.StringVar(&f.input.VideoPrompt, "video-prompt", "", "video generation prompt")
	fs.BoolVar(&f.input.GenerateImage, "generate-image", true, "generate marketing images")
	fs.BoolVar(&f.input.GenerateVideo, "generate-video", false, "generate a marketing video")
}

// overlay copies the flags the user set onto base, leaving the rest as stored.
func (f *listingFlags) overlay(fs *pflag.FlagSet, base forms.ListingInput) forms.ListingInput {
	set := func(name string, dst *string, value string) {
		if fs.Changed(name) {
			*dst = value
		}
	}
	set("title", &base.Title, f.input.Title)
	set("description", &base.Description, f.input.Description)
	set("category", &base.CategoryID, f.input.CategoryID)
	set("condition", &base.ConditionID, f.input.ConditionID)
	set("price", &base.Price, f.input.Price)
	set("quantity", &base.Quantity, f.input.Quantity)
	set("product-photo-url", &base.ProductPhotoURL, f.input.ProductPhotoURL)
	set("model-avatar-url", &base.ModelAvatarURL, f.input.ModelAvatarURL)
	set("target-audience", &base.TargetAudience, f.input.TargetAudience)
	set("features", &base.ProductFeatures, f.input.ProductFeatures)
	set("video-setting", &base.VideoSetting, f.input.VideoSetting)
	set("image-prompt", &base.ImagePrompt, f.input.ImagePrompt)
	set("video-prompt", &base.VideoPrompt, f.input.VideoPrompt)
	if fs.Changed("image-url") {
		base.UploadedImages = f.input.UploadedImages
	}
	if fs.Changed("generate-image") {
		base.GenerateImage = f.input.GenerateImage
	}
	if fs.Changed("generate-video") {
		base.GenerateVideo = f.input.GenerateVideo
	}
	return base
}

// uploadImages stages local files and appends the stored URLs to in.
func (f *listingFlags) uploadImages(ctx context.Context, api *client.Client, in *forms.ListingInput) error {
	if len(f.images) == 0 {
		return nil
	}
	urls, err := uploadPaths(ctx, api, f.images)
	if err != nil {
		return err
	}
	in.UploadedImages = append(append([]string(nil), in.UploadedImages...), urls...)
	return nil
}

func uploadPaths(ctx context.Context, api *client.Client, paths []string) ([]string, error) {
	files := make([]forms.StagedFile, 0, len(paths))
	for _, path := range paths {
		file, err := forms.LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	staged, err := forms.StageUploads(files)
	if err != nil {
		return nil, err
	}
	result, err := api.UploadImages(ctx, staged)
	if err != nil {
		return nil, err
	}
	return result.URLs, nil
}

func newListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "dashboard"},
		Short:   "List your listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *enums.ListingStatus
			if status != "" {
				parsed, err := enums.ParseListingStatus(status)
				if err != nil {
					return err
				}
				filter = &parsed
			}
			listings, err := a.api.ListListings(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(listings))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show listings in this status")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a listing and its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := a.api.GetListing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if preview {
				fmt.Fprintln(cmd.OutOrStdout(), renderPreview(workflow.BuildPreview(listing, nil)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderState(workflow.State{Listing: listing}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "render the marketplace preview")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		fields   listingFlags
		generate bool
		wait     bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft listing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in := fields.input
			if err := forms.ValidateListing(in); err != nil {
				return err
			}
			if err := fields.uploadImages(ctx, a.api, &in); err != nil {
				return err
			}
			req, err := forms.ToCreate(in)
			if err != nil {
				return err
			}
			listing, err := a.api.CreateListing(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Created listing "+listing.ID))
			if !generate {
				return nil
			}
			return a.drive(cmd, listing.ID, wait, func(ctrl *workflow.Controller) error {
				return ctrl.GenerateMedia(ctx)
			})
		},
	}
	fields.register(cmd.Flags())
	cmd.Flags().BoolVar(&generate, "generate", false, "start media generation right away")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the job to finish")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var fields listingFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a listing's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.controller(ctx, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if !ctrl.State().CanSave() {
				return fmt.Errorf("listing cannot be edited while %s", ctrl.State().Badge().Label)
			}
			in := fields.overlay(cmd.Flags(), forms.FromListing(ctrl.Listing()))
			if err := forms.ValidateListing(in); err != nil {
				return err
			}
			if err := fields.uploadImages(ctx, a.api, &in); err != nil {
				return err
			}
			update, err := forms.ToUpdate(in)
			if err != nil {
				return err
			}
			if err := ctrl.Save(ctx, update); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderState(ctrl.State()))
			return nil
		},
	}
	fields.register(cmd.Flags())
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a listing",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			ctx := cmd.Context()
			ctrl, err := a.controller(ctx, args[0])
			if err != nil {
				return err
			}
			defer ctrl.Close()
			if err := ctrl.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderState(ctrl.State()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload product images and print their URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := uploadPaths(cmd.Context(), a.api, args)
			if err != nil {
				return err
			}
			for _, url := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), url)
			}
			return nil
		},
	}
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the category and condition ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Categories"))
			for _, o := range forms.Categories {
				fmt.Fprintf(out, "  %-8s %s\n", o.ID, o.Label)
			}
			fmt.Fprintln(out, titleStyle.Render("Conditions"))
			for _, o := range forms.Conditions {
				fmt.Fprintf(out, "  %-8s %s\n", o.ID, o.Label)
			}
			return nil
		},
	}
}
