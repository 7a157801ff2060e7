// Package tiger downloads Census TIGER/Line boundary shapefiles and parses
// them into geometry-bearing records.
package tiger

import "fmt"

// Product describes a TIGER/Line shapefile product.
type Product struct {
	Name     string // e.g. "TRACT"
	Table    string // file-name component, e.g. "tract"
	National bool   // true = single national file, false = per-state
}

// Products lists the boundary products the pipeline understands.
var Products = []Product{
	{Name: "TRACT", Table: "tract", National: false},
	{Name: "COUNTY", Table: "county", National: true},
}

// TractProduct returns the per-state tract boundary product.
func TractProduct() Product {
	return Products[0]
}

// ProductByName looks up a product by its name (case-sensitive).
func ProductByName(name string) (Product, bool) {
	for _, p := range Products {
		if p.Name == name {
			return p, true
		}
	}
	return Product{}, false
}

// DownloadURL builds the Census Bureau download URL for a TIGER/Line shapefile.
// National products use tl_{year}_us_{table}.zip; per-state use tl_{year}_{fips}_{table}.zip.
func DownloadURL(product Product, year int, stateFIPS string) string {
	if product.National {
		return fmt.Sprintf(
			"https://www2.census.gov/geo/tiger/TIGER%d/%s/tl_%d_us_%s.zip",
			year, product.Name, year, product.Table,
		)
	}
	return fmt.Sprintf(
		"https://www2.census.gov/geo/tiger/TIGER%d/%s/tl_%d_%s_%s.zip",
		year, product.Name, year, stateFIPS, product.Table,
	)
}

// FTPMirrorURL builds the equivalent URL on the Census FTP mirror, which
// serves the same directory tree as www2.census.gov.
func FTPMirrorURL(product Product, year int, stateFIPS string) string {
	if product.National {
		return fmt.Sprintf(
			"ftp://ftp2.census.gov/geo/tiger/TIGER%d/%s/tl_%d_us_%s.zip",
			year, product.Name, year, product.Table,
		)
	}
	return fmt.Sprintf(
		"ftp://ftp2.census.gov/geo/tiger/TIGER%d/%s/tl_%d_%s_%s.zip",
		year, product.Name, year, stateFIPS, product.Table,
	)
}
