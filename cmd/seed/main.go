package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/flexystyles/storefront-backend/config"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	"github.com/flexystyles/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <catalog.xlsx>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	productRepo := repository.NewProductRepository(db.GetDB())
	productService := service.NewProductService(productRepo)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, report, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", report.Rows)
	fmt.Printf("  Valid products: %d\n", len(products))
	fmt.Printf("  Skipped rows: %d\n", report.Skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	created, existing := 0, 0
	for i := range products {
		p := &products[i]
		if p.SKU != "" {
			_, err := productRepo.FindBySKU(p.SKU)
			if err == nil {
				existing++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Fatal("Failed to look up SKU:", err)
			}
		}
		if err := productService.CreateProduct(p); err != nil {
			log.Fatalf("Failed to create product %q: %v", p.Name, err)
		}
		created++
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Created: %d\n", created)
	fmt.Printf("  Already present: %d\n", existing)
}
