package commands

import (
	"github.com/spf13/cobra"

	"brandstudio/internal/domain"
	"brandstudio/internal/session"
)

type imageFlags struct {
	product       string
	model         string
	logo          string
	reference     string
	referenceFile string
}

func (f *imageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.product, "product", "p", "", "product image (required)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "model image")
	cmd.Flags().StringVar(&f.logo, "logo", "", "logo image")
	cmd.Flags().StringVarP(&f.reference, "reference", "r", "", "reference article text")
	cmd.Flags().StringVar(&f.referenceFile, "reference-file", "", "file holding the reference article")
	_ = cmd.MarkFlagRequired("product")
}

// apply loads images and reference text and waits for the resulting style
// suggestion.
func (f *imageFlags) apply(s *session.Session) error {
	reference, err := readText(f.reference, f.referenceFile)
	if err != nil {
		return err
	}
	if reference != "" {
		if _, err := s.UpdateParams(domain.ParamsPatch{ReferenceText: &reference}); err != nil {
			return err
		}
	}
	for _, in := range []struct {
		slot domain.Slot
		path string
	}{
		{domain.SlotModel, f.model},
		{domain.SlotLogo, f.logo},
		{domain.SlotProduct, f.product},
	} {
		if err := loadImage(s, in.slot, in.path); err != nil {
			return err
		}
	}
	s.WaitSuggestions()
	return nil
}

var suggestFlags imageFlags

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest marketing styles for a product image",
	Long: `Suggest marketing styles for a product image.

The model image and reference article, when given, steer the suggestions.
Falls back to a fixed list when the model call fails.

Examples:
  studio suggest -p product.png
  studio suggest -p product.png -m model.jpg --reference-file post.txt --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		return runSuggest(s, &suggestFlags)
	},
}

func runSuggest(s *session.Session, flags *imageFlags) error {
	if err := flags.apply(s); err != nil {
		return err
	}
	snap := s.Snapshot()
	printAdvisory(snap)
	if jsonOutput {
		return printJSON(map[string]any{"styles": snap.Styles, "top": domain.TopStyles(snap.Styles)})
	}
	for i, st := range snap.Styles {
		printInfo("%2d. %s", i+1, st)
	}
	return nil
}

func init() {
	suggestFlags.register(suggestCmd)
	rootCmd.AddCommand(suggestCmd)
}
