package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/mromano1/equity-atlas/internal/equity"
)

var csvHeader = []string{
	"geoid", "name", "state_fips", "county_fips", "tracts",
	"poverty_universe", "below_half", "half_to_one", "population",
	"aland", "awater", "poverty_rate",
}

// WriteCSV writes one row per county, no geometry.
func WriteCSV(counties []equity.County, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, c := range counties {
		row := []string{
			c.GEOID,
			c.Name,
			c.StateFIPS,
			c.CountyFIPS,
			strconv.Itoa(c.Tracts),
			strconv.FormatInt(c.PovertyUniverse, 10),
			strconv.FormatInt(c.BelowHalf, 10),
			strconv.FormatInt(c.HalfToOne, 10),
			strconv.FormatInt(c.Population, 10),
			strconv.FormatInt(c.ALand, 10),
			strconv.FormatInt(c.AWater, 10),
			strconv.FormatFloat(c.PovertyRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", c.GEOID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return f.Close()
}
