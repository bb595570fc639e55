// Package export writes stored regions to spreadsheets for manual review.
package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regions-cli/internal/region"
)

// Sheet names in the exported workbook.
const (
	RegionsSheet = "regions"
	RunsSheet    = "load_runs"
)

var regionHeader = []string{
	"NUTS_ID", "LEVL_CODE", "CNTR_CODE", "NAME_LATN", "NUTS_NAME",
	"MOUNT_TYPE", "URBN_TYPE", "COAST_TYPE", "FID", "HAS_GEOMETRY", "VERSION", "UPDATED_AT",
}

var runHeader = []string{
	"ID", "SOURCE", "STATUS", "INSERTED", "UPDATED", "UNCHANGED", "DUPLICATES", "ERROR", "STARTED_AT", "COMPLETED_AT",
}

// WriteXLSX writes regions, and runs when non-empty, to a workbook at path.
func WriteXLSX(path string, regions []region.Region, runs []region.Run) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(RegionsSheet)
	if err != nil {
		return eris.Wrap(err, "export: add regions sheet")
	}
	addStrings(sheet.AddRow(), regionHeader)
	for _, r := range regions {
		row := sheet.AddRow()
		row.AddCell().SetString(r.NUTSID)
		row.AddCell().SetInt(r.LevelCode)
		row.AddCell().SetString(r.CountryCode)
		row.AddCell().SetString(r.NameLatin)
		row.AddCell().SetString(r.NUTSName)
		row.AddCell().SetString(nullableInt(r.MountType))
		row.AddCell().SetString(nullableInt(r.UrbanType))
		row.AddCell().SetString(nullableInt(r.CoastType))
		row.AddCell().SetString(r.FID)
		row.AddCell().SetBool(r.HasGeometry())
		row.AddCell().SetInt(r.Version)
		row.AddCell().SetDateTime(r.UpdatedAt)
	}

	if len(runs) > 0 {
		sheet, err := f.AddSheet(RunsSheet)
		if err != nil {
			return eris.Wrap(err, "export: add runs sheet")
		}
		addStrings(sheet.AddRow(), runHeader)
		for _, run := range runs {
			row := sheet.AddRow()
			row.AddCell().SetString(run.ID)
			row.AddCell().SetString(run.Source)
			row.AddCell().SetString(string(run.Status))
			row.AddCell().SetInt(run.Inserted)
			row.AddCell().SetInt(run.Updated)
			row.AddCell().SetInt(run.Unchanged)
			row.AddCell().SetInt(run.Duplicates)
			row.AddCell().SetString(run.Error)
			row.AddCell().SetDateTime(run.StartedAt)
			if run.CompletedAt != nil {
				row.AddCell().SetDateTime(*run.CompletedAt)
			} else {
				row.AddCell().SetString("")
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func nullableInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
