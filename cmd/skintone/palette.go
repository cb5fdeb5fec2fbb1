package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okamyuji/skin-tone-analyzer/internal/analyzer"
	"github.com/okamyuji/skin-tone-analyzer/internal/handler"
	"github.com/okamyuji/skin-tone-analyzer/internal/palette"
)

var paletteCmd = &cobra.Command{
	Use:   "palette <depth> <undertone>",
	Short: "肌トーン区分の推奨色を表示",
	Long: `肌の明るさとアンダートーンを指定して推奨色を表示します。

例:
  skintone palette Fair Warm
  skintone palette --scheme extended very-fair olive --json`,
	Args: cobra.ExactArgs(2),
	RunE: runPalette,
}

func init() {
	rootCmd.AddCommand(paletteCmd)

	paletteCmd.Flags().String("scheme", handler.SchemeLegacy, "分類方式 (legacy, extended)")
	paletteCmd.Flags().Bool("json", false, "JSONで出力")
}

func runPalette(cmd *cobra.Command, args []string) error {
	scheme := mustGetString(cmd, "scheme")
	jsonOutput := mustGetBool(cmd, "json")

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := palette.Load(cfg.Palette.File)
	if err != nil {
		return err
	}

	resp, err := handler.Lookup(table, strings.ToLower(scheme), args[0], args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printPalette(out, resp)
	return nil
}

func printPalette(w io.Writer, p handler.PaletteResponse) {
	fmt.Fprintf(w, "%s (%s)\n", p.Category, p.Scheme)
	fmt.Fprintf(w, "  肌色:           %s\n", p.SkinColor)
	r := p.Recommendations
	printColors(w, "服", r.Clothing.BestColors)
	printColors(w, "ファンデーション", r.Makeup.Foundation)
	printColors(w, "リップ", r.Makeup.Lipstick)
	printColors(w, "アイシャドウ", r.Makeup.Eyeshadow)
	printColors(w, "金属", r.Jewelry.BestMetals)
	printColors(w, "宝石", r.Jewelry.StoneColors)
}

func printColors(w io.Writer, label string, c analyzer.NamedColors) {
	entries := make([]string, len(c.HexCodes))
	for i, hex := range c.HexCodes {
		if i < len(c.Names) && c.Names[i] != "" {
			entries[i] = fmt.Sprintf("%s %s", hex, c.Names[i])
		} else {
			entries[i] = hex
		}
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(entries, ", "))
}
