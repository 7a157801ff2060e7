package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mromano1/equity-atlas/internal/equity"
)

// WriteXLSX writes the counties to a single-sheet workbook mirroring the CSV
// layout.
func WriteXLSX(counties []equity.County, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Counties")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, name := range csvHeader {
		header.AddCell().SetString(name)
	}

	for _, c := range counties {
		row := sheet.AddRow()
		row.AddCell().SetString(c.GEOID)
		row.AddCell().SetString(c.Name)
		row.AddCell().SetString(c.StateFIPS)
		row.AddCell().SetString(c.CountyFIPS)
		row.AddCell().SetInt(c.Tracts)
		row.AddCell().SetInt64(c.PovertyUniverse)
		row.AddCell().SetInt64(c.BelowHalf)
		row.AddCell().SetInt64(c.HalfToOne)
		row.AddCell().SetInt64(c.Population)
		row.AddCell().SetInt64(c.ALand)
		row.AddCell().SetInt64(c.AWater)
		row.AddCell().SetFloatWithFormat(c.PovertyRate, "0.0000")
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
