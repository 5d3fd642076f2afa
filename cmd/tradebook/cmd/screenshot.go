package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/ledger"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot <image>...",
	Short: "Read closed trades from exchange screenshots",
	Long: `Run OCR over each image, extract the trade and record it.

Needs Tesseract with the languages named in ocr.languages installed.
An image that cannot be read is reported with a preview of the recognized
text and the remaining images are still processed.

Example:
  tradebook screenshot ~/Downloads/close-eth.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScreenshot,
}

var showText bool

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().BoolVar(&showText, "text", false, "print the recognized text")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	return withApp(ctx, func(a *app) error {
		rec := a.recognizer()
		ex := a.extractor()

		var failed int
		for _, path := range args {
			img, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			page, err := rec.Recognize(ctx, img)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if showText {
				fmt.Fprintf(w, "--- %s ---\n%s\n", path, page.Text)
			}

			res, err := ex.Extract(ctx, page)
			var fail *extract.FailureError
			if errors.As(err, &fail) {
				failed++
				fmt.Fprintf(w, "✗ %s: could not read a trade\n  text: %q\n", path, fail.Preview)
				for _, at := range fail.Attempts {
					fmt.Fprintf(w, "  %s: %v\n", at.Pass, at.Err)
				}
				continue
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%s: read by %s pass\n", path, res.Pass)
			if res.SideDefaulted {
				fmt.Fprintln(w, "  side not found, assumed long")
			}
			if res.Suspicious {
				fmt.Fprintln(w, "  values look inconsistent, check before relying on them")
			}
			out, err := a.ledger.Submit(ctx, requester, ledger.FromExtraction(res))
			if err != nil {
				return err
			}
			if err := settle(cmd, a, out); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d images: %w", failed, len(args), extract.ErrUnusable)
		}
		return nil
	})
}
