package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/regions-cli/internal/region"
)

// writeRegions renders regions as a table, JSON, or YAML.
func writeRegions(out io.Writer, regions []region.Region, format string) error {
	switch format {
	case "", "table":
		formatRegionTable(out, regions)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(regions), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(regions); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q (want table, json, or yaml)", format)
	}
}

func formatRegionTable(out io.Writer, regions []region.Region) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NUTS_ID\tLEVEL\tCOUNTRY\tNAME_LATN\tNUTS_NAME\tMOUNT\tURBN\tCOAST\tVERSION")
	_, _ = fmt.Fprintln(w, "-------\t-----\t-------\t---------\t---------\t-----\t----\t-----\t-------")
	for _, r := range regions {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.NUTSID,
			r.LevelCode,
			r.CountryCode,
			truncate(r.NameLatin, 40),
			truncate(r.NUTSName, 40),
			optInt(r.MountType),
			optInt(r.UrbanType),
			optInt(r.CoastType),
			r.Version,
		)
	}
	_ = w.Flush()
}

// formatRuns writes a tabular representation of load runs to out.
func formatRuns(out io.Writer, runs []region.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tSTATUS\tSTARTED\tDURATION\tINSERTED\tUPDATED\tUNCHANGED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-------\t--------\t--------\t-------\t---------\t-----")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			truncateID(r.ID),
			truncate(r.Source, 50),
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.Inserted,
			r.Updated,
			r.Unchanged,
			truncate(r.Error, 60),
		)
	}
	_ = w.Flush()
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
