package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/model"
)

var (
	templatesAddFile    string
	templatesAddName    string
	templatesAddVersion string
	templatesAddDefault bool
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the COC template registry",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tpls, err := st.ListTemplates(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tpls)
	},
}

var templatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a DOCX template",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		name := templatesAddName
		if name == "" {
			name = jobName(templatesAddFile)
		}

		dest, err := copyTemplate(templatesAddFile, cfg.Render.TemplatesDir)
		if err != nil {
			return err
		}

		tpl := &model.Template{
			Name:      name,
			Version:   templatesAddVersion,
			Filename:  filepath.Base(dest),
			Path:      dest,
			IsDefault: templatesAddDefault,
		}
		if err := st.CreateTemplate(ctx, tpl); err != nil {
			return err
		}

		zap.L().Info("template registered",
			zap.String("id", tpl.ID),
			zap.String("name", tpl.Name),
			zap.Bool("default", tpl.IsDefault))
		return nil
	},
}

var templatesSetDefaultCmd = &cobra.Command{
	Use:   "set-default <template-id>",
	Short: "Make a template the registry default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		return st.SetDefaultTemplate(ctx, args[0])
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Remove a template from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		return st.DeleteTemplate(ctx, args[0])
	},
}

// copyTemplate stages an uploaded template file into the templates directory.
func copyTemplate(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "create templates directory")
	}

	in, err := os.Open(src)
	if err != nil {
		return "", eris.Wrap(err, "open template")
	}
	defer in.Close()

	dest := filepath.Join(dir, filepath.Base(src))
	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "stage template")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", eris.Wrap(err, "copy template")
	}
	return dest, nil
}

func init() {
	templatesAddCmd.Flags().StringVar(&templatesAddFile, "file", "", "DOCX template file (required)")
	templatesAddCmd.Flags().StringVar(&templatesAddName, "name", "", "template name (default: filename)")
	templatesAddCmd.Flags().StringVar(&templatesAddVersion, "version", "", "template version label")
	templatesAddCmd.Flags().BoolVar(&templatesAddDefault, "default", false, "make this the default template")
	_ = templatesAddCmd.MarkFlagRequired("file")

	templatesCmd.AddCommand(templatesListCmd, templatesAddCmd, templatesSetDefaultCmd, templatesDeleteCmd)
	rootCmd.AddCommand(templatesCmd)
}
