package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"brandstudio/internal/domain"
	"brandstudio/internal/session"
)

// loadImage reads an image file into a slot. An empty path is a no-op.
func loadImage(s *session.Session, slot domain.Slot, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s image: %w", slot, err)
	}
	img, err := domain.DecodeUpload(slot, filepath.Base(path), "", data)
	if err != nil {
		return fmt.Errorf("%s image %s: %w", slot, path, err)
	}
	s.SetAsset(slot, img)
	printVerbose("Loaded %s image %s (%s, %d bytes)", slot, path, img.MIMEType, len(img.Data))
	return nil
}

// readText returns inline text, or the contents of file when inline is empty.
func readText(inline, file string) (string, error) {
	if inline != "" || file == "" {
		return inline, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", file, err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

func printInfo(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// printAdvisory surfaces fallback notices on stderr.
func printAdvisory(snap session.Snapshot) {
	if snap.Advisory != "" {
		fmt.Fprintln(os.Stderr, "Note:", snap.Advisory)
	}
}
