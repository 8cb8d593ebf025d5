package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"brandstudio/internal/domain"
	"brandstudio/internal/session"
	"brandstudio/internal/storage"
	"brandstudio/pkg/zip"
)

var (
	generateFlags   imageFlags
	generateAspect  string
	generateQuality string
	generatePersona string
	generateOverlay string
	generateDims    string
	generateOut     string
	generateZip     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render branded images for the top suggested styles",
	Long: `Render branded images for the top suggested styles.

Styles are suggested first, then up to four images are generated in
parallel. Either all of them are saved or none is.

Examples:
  studio generate -p product.png --logo logo.png -o out/
  studio generate -p product.png --aspect 9:16 --overlay "Giảm 50%" --zip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		store, err := storage.NewFileStore(generateOut)
		if err != nil {
			return err
		}
		return runGenerate(cmd, s, store, time.Now())
	},
}

func generatePatch(cmd *cobra.Command) domain.ParamsPatch {
	var patch domain.ParamsPatch
	set := func(flag string, v *string) *string {
		if cmd.Flags().Changed(flag) {
			return v
		}
		return nil
	}
	patch.AspectRatio = set("aspect", &generateAspect)
	patch.Quality = set("quality", &generateQuality)
	patch.Persona = set("persona", &generatePersona)
	patch.OverlayText = set("overlay", &generateOverlay)
	patch.ProductDimensions = set("dimensions", &generateDims)
	return patch
}

func runGenerate(cmd *cobra.Command, s *session.Session, store *storage.FileStore, at time.Time) error {
	if _, err := s.UpdateParams(generatePatch(cmd)); err != nil {
		return err
	}
	if err := generateFlags.apply(s); err != nil {
		return err
	}
	printAdvisory(s.Snapshot())

	started := time.Now()
	snap, err := s.Generate(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrBatchFailed) || errors.Is(err, domain.ErrProductRequired) || errors.Is(err, domain.ErrNoStyles) {
			return fmt.Errorf("%s: %w", snap.Error, err)
		}
		return err
	}
	printVerbose("Generated %d images in %s", len(snap.Images), time.Since(started).Round(time.Millisecond))

	images := s.Images()
	keys, err := store.WriteImages(cmd.Context(), images, at)
	if err != nil {
		return err
	}
	if generateZip {
		assets := make([]zip.Asset, 0, len(images))
		for _, img := range images {
			assets = append(assets, zip.Asset{
				Filename: session.DownloadName(img.Style, at, img.MIMEType),
				MIME:     img.MIMEType,
				Data:     img.Data,
			})
		}
		archive, err := zip.ArchiveAssets(assets, at)
		if err != nil {
			return err
		}
		key, err := store.Write(cmd.Context(), "brand-images-"+strconv.FormatInt(at.UnixMilli(), 10)+".zip", archive)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	if jsonOutput {
		files := make([]string, 0, len(keys))
		for _, k := range keys {
			files = append(files, store.Path(k))
		}
		return printJSON(map[string]any{"styles": domain.TopStyles(snap.Styles), "files": files})
	}
	for _, k := range keys {
		printInfo("%s", store.Path(k))
	}
	return nil
}

func init() {
	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVar(&generateAspect, "aspect", string(domain.DefaultAspectRatio), "aspect ratio (1:1, 9:16, 16:9)")
	generateCmd.Flags().StringVar(&generateQuality, "quality", string(domain.DefaultQuality), "quality (4K, 8K, 16K)")
	generateCmd.Flags().StringVar(&generatePersona, "persona", string(domain.DefaultPersona), "marketing persona")
	generateCmd.Flags().StringVar(&generateOverlay, "overlay", "", "overlay text rendered onto the image")
	generateCmd.Flags().StringVar(&generateDims, "dimensions", "", "real product dimensions")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", ".", "output directory")
	generateCmd.Flags().BoolVar(&generateZip, "zip", false, "also write a zip with every image")
	rootCmd.AddCommand(generateCmd)
}
