// Package catalog describes the IGN boundary products the loader knows
// how to ingest and tracks completed loads in a local SQLite ledger.
package catalog

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Product describes a distributable boundary dataset.
type Product struct {
	Name        string   // e.g., "ADMIN-EXPRESS-COG"
	Description string
	Layers      []Layer
	URLTemplate string // {vintage} and {territory} placeholders
	Format      string // "shapefile"
}

// Layer describes one shapefile layer within a product.
type Layer struct {
	Name      string   // e.g., "COMMUNE"
	Shapefile string   // shapefile base name inside the archive
	KeyField  string   // DBF field holding the stable business code
	NameField string   // DBF field holding the display name
	Attrs     []string // DBF fields carried as entity attributes
}

// Products lists the supported boundary datasets.
var Products = []Product{
	{
		Name:        "ADMIN-EXPRESS-COG",
		Description: "French administrative boundaries aligned with the official geographic code",
		URLTemplate: "ftp://ftp.ign.fr/ADMIN-EXPRESS-COG/ADMIN-EXPRESS-COG_{vintage}_{territory}.zip",
		Format:      "shapefile",
		Layers: []Layer{
			{
				Name:      "COMMUNE",
				Shapefile: "COMMUNE",
				KeyField:  "insee_com",
				NameField: "nom",
				Attrs:     []string{"nom", "insee_dep", "insee_reg", "statut", "population"},
			},
			{
				Name:      "ARRONDISSEMENT",
				Shapefile: "ARRONDISSEMENT",
				KeyField:  "insee_arr",
				NameField: "nom",
				Attrs:     []string{"nom", "insee_dep", "insee_reg"},
			},
			{
				Name:      "DEPARTEMENT",
				Shapefile: "DEPARTEMENT",
				KeyField:  "insee_dep",
				NameField: "nom",
				Attrs:     []string{"nom", "insee_reg"},
			},
			{
				Name:      "REGION",
				Shapefile: "REGION",
				KeyField:  "insee_reg",
				NameField: "nom",
				Attrs:     []string{"nom"},
			},
			{
				Name:      "EPCI",
				Shapefile: "EPCI",
				KeyField:  "code_siren",
				NameField: "nom",
				Attrs:     []string{"nom", "nature"},
			},
		},
	},
	{
		Name:        "CONTOURS-CODES-POSTAUX",
		Description: "Postal code polygon contours",
		URLTemplate: "https://data.geopf.fr/telechargement/codes-postaux/contours-codes-postaux_{vintage}.zip",
		Format:      "shapefile",
		Layers: []Layer{
			{
				Name:      "CODE_POSTAL",
				Shapefile: "codes_postaux_region",
				KeyField:  "id",
				NameField: "lib",
				Attrs:     []string{"lib", "dep"},
			},
		},
	},
}

// Territories lists the distribution territories for ADMIN-EXPRESS-COG.
// FXX is metropolitan France; the rest are overseas departments.
var Territories = []string{"FXX", "GLP", "MTQ", "GUF", "REU", "MYT"}

// ProductByName returns the product with the given name (case-insensitive).
func ProductByName(name string) (Product, bool) {
	for _, p := range Products {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Product{}, false
}

// LayerByName returns the named layer of a product (case-insensitive).
func (p Product) LayerByName(name string) (Layer, bool) {
	for _, l := range p.Layers {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Layer{}, false
}

// URL expands the product URL template for a vintage and territory.
func (p Product) URL(vintage, territory string) string {
	url := strings.ReplaceAll(p.URLTemplate, "{vintage}", vintage)
	return strings.ReplaceAll(url, "{territory}", territory)
}

// ValidateTerritory checks a territory code against the known list.
func ValidateTerritory(code string) error {
	up := strings.ToUpper(code)
	for _, t := range Territories {
		if t == up {
			return nil
		}
	}
	return eris.Errorf("catalog: unknown territory %q (expected one of %s)",
		code, strings.Join(Territories, ", "))
}

// LayerNames returns all layer names across all products, sorted.
func LayerNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, p := range Products {
		for _, l := range p.Layers {
			if !seen[l.Name] {
				seen[l.Name] = true
				names = append(names, l.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}
