package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// catalog sheet columns, in order
var catalogHeaders = []string{
	"name", "category", "price", "description", "sizes", "colors",
	"images", "tags", "stock", "sku", "is_new", "limited_offer",
}

type importReport struct {
	Rows    int
	Skipped int
}

func readProductsFromXLSX(filePath string) ([]model.Product, importReport, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, importReport{}, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, importReport{}, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, importReport{}, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, importReport{}, fmt.Errorf("no data found in XLSX file")
	}

	columns := indexColumns(rows[0])
	for _, required := range []string{"name", "category", "price"} {
		if _, ok := columns[required]; !ok {
			return nil, importReport{}, fmt.Errorf("missing required column %q", required)
		}
	}

	report := importReport{Rows: len(rows) - 1}
	seen := make(map[string]bool)
	var products []model.Product

	for _, row := range rows[1:] {
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := cell("name")
		category := cell("category")
		price, err := strconv.ParseFloat(cell("price"), 64)
		if name == "" || category == "" || err != nil || price <= 0 {
			report.Skipped++
			continue
		}

		key := strings.ToLower(name + "|" + category)
		if seen[key] {
			report.Skipped++
			continue
		}
		seen[key] = true

		stock, _ := strconv.Atoi(cell("stock"))
		products = append(products, model.Product{
			Name:         name,
			Category:     category,
			Price:        price,
			Description:  cell("description"),
			Sizes:        splitList(cell("sizes")),
			Colors:       splitList(cell("colors")),
			Images:       splitList(cell("images")),
			Tags:         splitList(cell("tags")),
			Stock:        stock,
			SKU:          cell("sku"),
			IsNew:        parseFlag(cell("is_new")),
			LimitedOffer: parseFlag(cell("limited_offer")),
		})
	}

	return products, report, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if key != "" {
			columns[key] = i
		}
	}
	return columns
}

// splitList reads a comma separated cell. An empty cell yields nil.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFlag(value string) bool {
	switch strings.ToLower(value) {
	case "1", "y", "yes", "true":
		return true
	}
	return false
}
