package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/joelkehle/strategy-workbench/internal/export"
	"github.com/joelkehle/strategy-workbench/internal/project"
	"github.com/joelkehle/strategy-workbench/internal/report"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

func loadProject(path string) (project.Snapshot, error) {
	snap, err := project.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return project.Snapshot{}, fmt.Errorf("project file %s does not exist", path)
	}
	return snap, err
}

func (a *app) scoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "score <project-file>",
		Short: "Score both matrices of a project file and place it on the IE matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadProject(args[0])
			if err != nil {
				return err
			}
			analysis := session.Analyze(snap.IFE, snap.EFE)
			out := cmd.OutOrStdout()
			if err := export.Write(out, export.FormatTable, snap.Profile.ID, analysis.IFE, analysis.EFE); err != nil {
				return err
			}
			return writePosition(out, analysis.Position)
		},
	}
}

func (a *app) deriveCommand() *cobra.Command {
	var write, force bool
	cmd := &cobra.Command{
		Use:   "derive <project-file>",
		Short: "Seed IFE and EFE factors from the SWOT items of a project file",
		Long:  "Derive prints the seeded matrices. With --write the factors are stored in the file and the project moves to the matrix phase; existing factor edits are only discarded with --force.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			snap, err := loadProject(path)
			if err != nil {
				return err
			}
			if write && snap.Phase == project.PhaseMatrix && !force {
				return session.ErrAlreadyDerived
			}
			sess := session.FromSnapshot(snap)
			d := sess.RederiveFactors()

			out := cmd.OutOrStdout()
			ife := strategy.Summarize(strategy.MatrixIFE, d.IFE)
			efe := strategy.Summarize(strategy.MatrixEFE, d.EFE)
			if err := export.Write(out, export.FormatTable, snap.Profile.ID, ife, efe); err != nil {
				return err
			}
			if !write {
				return nil
			}
			if err := project.SaveFile(path, sess.Snapshot()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "wrote %d IFE and %d EFE factors to %s\n", len(d.IFE), len(d.EFE), path)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "store the derived factors in the project file")
	cmd.Flags().BoolVar(&force, "force", false, "replace factors that were already derived")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export <project-file>",
		Short: "Export the scored factor tables as csv, parquet, json or table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			snap, err := loadProject(args[0])
			if err != nil {
				return err
			}
			ife := strategy.Summarize(strategy.MatrixIFE, snap.IFE)
			efe := strategy.Summarize(strategy.MatrixEFE, snap.EFE)
			return withOutput(cmd, outPath, func(w io.Writer) error {
				return export.Write(w, f, snap.Profile.ID, ife, efe)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "csv, parquet, json or table")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) reportCommand() *cobra.Command {
	var outPath, pdfPath, title string
	cmd := &cobra.Command{
		Use:   "report <project-file>",
		Short: "Build the Markdown strategy report, optionally rendered to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadProject(args[0])
			if err != nil {
				return err
			}
			in := report.InputFromSnapshot(snap)
			in.Title = title
			doc := report.Build(in)

			if pdfPath != "" {
				r, err := a.renderer()
				if err != nil {
					return err
				}
				pdf, err := r.Render(cmd.Context(), doc)
				if err != nil {
					return err
				}
				if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
					return err
				}
				log.Printf("wrote pdf report path=%s bytes=%d", pdfPath, len(pdf))
				if outPath == "" {
					return nil
				}
			}
			return withOutput(cmd, outPath, func(w io.Writer) error {
				_, err := io.WriteString(w, doc.Markdown)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "markdown output file (default stdout)")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "also render a PDF to this path (needs Chromium)")
	cmd.Flags().StringVar(&title, "title", "", "report title")
	return cmd
}

func withOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
