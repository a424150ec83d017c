package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"tero-backend/internal/app"
	"tero-backend/internal/database"
	"tero-backend/internal/notify"
	"tero-backend/internal/reports"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Levanta la API HTTP (comando por defecto)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Crea o actualiza el esquema de la base de datos",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := database.Init(cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migración completa")
		return nil
	},
}

var importDate string

var importPricesCmd = &cobra.Command{
	Use:   "import-prices <archivo.xlsx>",
	Short: "Importa una lista de precios de proveedor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defaultDate, err := app.ParseDate(importDate)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, issues, err := reports.ParsePriceList(f, defaultDate)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		d, cleanup, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := (&reports.Importer{Store: d.Store}).Import(ctx, rows)
		if err != nil {
			return err
		}
		if res.Imported > 0 {
			d.Invalidate(ctx)
			for _, obs := range res.Observations {
				d.Publish(ctx, notify.PriceRecorded, obs.IngredientID, obs)
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Precios importados: %d\n", res.Imported)
		for _, name := range res.Unmatched {
			fmt.Fprintf(out, "  sin coincidencia: %s\n", name)
		}
		for _, is := range append(issues, res.Issues...) {
			fmt.Fprintf(out, "  fila %d (%s): %s\n", is.Line, is.Value, is.Reason)
		}
		return nil
	},
}

var exportDir string

var exportCostsCmd = &cobra.Command{
	Use:   "export-costs",
	Short: "Genera el Excel de costos de recetas y carta",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		d, cleanup, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := reports.BuildCostReport(ctx, d.Ledger)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := reports.WriteCostWorkbook(&buf, report); err != nil {
			return err
		}
		path := filepath.Join(exportDir, report.FileName())
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reporte escrito en %s\n", path)

		if d.Archiver.Enabled() {
			location, err := d.Archiver.Upload(ctx, reports.ArchiveKey(report.FileName(), report.GeneratedAt), buf.Bytes())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archivado en %s\n", location)
		}
		return nil
	},
}

func init() {
	importPricesCmd.Flags().StringVar(&importDate, "date", "", "fecha por defecto de los precios (AAAA-MM-DD, hoy si se omite)")
	exportCostsCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "directorio de salida")
}
