package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/textaudit/internal/classify"
	"github.com/ppiankov/textaudit/internal/util"
	"github.com/ppiankov/textaudit/internal/worker"
	"github.com/spf13/cobra"
)

// classifyCmd shows how a dossier's files would be assigned, without extraction
var classifyCmd = &cobra.Command{
	Use:   "classify <dossier-dir>",
	Short: "Show the role assigned to each file of one dossier",
	Long: `Classify runs only the role classifier on one dossier folder and prints
which file is the application form, which are the attachments, and why.
With --previews=false and no LLM configured, no file content is sent anywhere.

Example:
  textaudit classify ./data/OperationsResearch
  textaudit classify ./data/OperationsResearch --previews=false`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	addClassifyFlags(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	logger, err := util.NewLogger(cfg.Output.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	d, err := worker.ReadDossier(args[0])
	if err != nil {
		return err
	}

	var classifier *classify.Classifier
	if cfg.Classify.UsePreviews {
		backend, err := newBackend(cfg, logger)
		if err != nil {
			return err
		}
		classifier, err = newClassifier(cfg, backend, logger)
		if err != nil {
			return err
		}
	} else {
		classifier, err = newClassifier(cfg, nil, logger)
		if err != nil {
			return err
		}
	}

	a, classifyErr := classifier.Classify(cmd.Context(), d.Files)

	fmt.Fprintf(os.Stderr, "Dossier: %s (%d files)\n\n", d.ID, len(d.Files))
	if a != nil {
		for _, f := range a.Files {
			fmt.Printf("  %-18s %-40s %s\n", f.Role, f.File.Name, f.Reason)
		}
		fmt.Println()
	}

	if classifyErr != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", classifyErr)
		return nil
	}
	form, _ := a.Form()
	fmt.Fprintf(os.Stderr, "✓ Application form: %s\n", form.Name)
	return nil
}
