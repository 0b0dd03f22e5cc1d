package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/existflow/joyful/internal/app"
	"github.com/existflow/joyful/internal/gallery"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/ui"
	"github.com/existflow/joyful/internal/workflow"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:     "generate [prompt]",
	Aliases: []string{"gen", "g"},
	Short:   "Generate images from a prompt",
	Long: `Generate images from a text prompt and save them as PNG files.

Each run uses one free generation, whatever the image count.

Examples:
  joyful generate "a cat wearing a hat"
  joyful generate "mountain lake at dawn" --ratio 16:9 --count 4
  joyful generate "logo sketch" --out ./images --copy`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("ratio", "r", string(model.DefaultRatio), "Aspect ratio (1:1, 16:9, 9:16, 4:3, 3:4)")
	generateCmd.Flags().IntP("count", "n", 1, "Number of images (1-4)")
	generateCmd.Flags().StringP("out", "o", "", "Directory to save images to (default from config)")
	generateCmd.Flags().Bool("copy", false, "Copy the first image to the clipboard")
	generateCmd.Flags().Bool("no-save", false, "Do not write image files")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	ratioFlag, _ := cmd.Flags().GetString("ratio")
	count, _ := cmd.Flags().GetInt("count")
	outDir, _ := cmd.Flags().GetString("out")
	copyFirst, _ := cmd.Flags().GetBool("copy")
	noSave, _ := cmd.Flags().GetBool("no-save")
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	a, err := openApp(func(o *app.Options) {
		o.Observers = append(o.Observers, printProgress)
	})
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Restore(cmd.Context())
	if err != nil {
		return err
	}
	if st.Profile == nil {
		fmt.Println("Not logged in. Run 'joyful auth login' or 'joyful auth register' first.")
		return nil
	}
	if st.EntitlementKnown && !st.Entitlement.HasTrials() {
		fmt.Println("❌ No trials remaining")
		return nil
	}

	group, err := a.Generate(cmd.Context(), prompt, model.Ratio(ratioFlag), count)
	fmt.Println()
	if err != nil {
		t := ui.ErrorToast(err)
		return fmt.Errorf("%s", t.Message)
	}

	fmt.Printf("✅ %s\n", ui.GeneratedToast(len(group.Images)).Message)
	if e, known := a.Trials.Current(); known {
		fmt.Printf("Remaining generations: %s\n", e.Display())
	}

	if !noSave {
		paths, err := gallery.SaveGroup(outDir, *group, time.Now())
		if err != nil {
			return fmt.Errorf("failed to save images: %w", err)
		}
		for _, p := range paths {
			fmt.Printf("💾 %s\n", p)
		}
	}

	if copyFirst {
		if err := gallery.Copy(group.Images[0]); err != nil {
			logger.Warn("Clipboard copy failed", logger.F("error", err))
			fmt.Printf("⚠️  Failed to copy image: %v\n", err)
		} else {
			fmt.Println("📋 Image copied to clipboard!")
		}
	}
	return nil
}

// printProgress draws the workflow phases on one terminal line
func printProgress(ev workflow.Event) {
	switch ev.State {
	case workflow.CheckingEntitlement:
		fmt.Fprint(os.Stdout, "\r🔄 Checking trials...")
	case workflow.ConsumingTrial:
		if ev.Entitlement != nil {
			fmt.Fprintf(os.Stdout, "\r🎟  Remaining generations: %s\n", ev.Entitlement.Display())
		}
	case workflow.Requesting:
		fmt.Fprintf(os.Stdout, "\r🎨 Generating... %3d%%", ev.Progress)
	case workflow.Rendering:
		if ev.Group == nil {
			fmt.Fprintf(os.Stdout, "\r🎨 Generating... %3d%%", ev.Progress)
		}
	}
}
