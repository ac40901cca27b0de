package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

func main() {
	filePath := flag.String("file", "", "xlsx stock sheet to import (same layout as GET /api/v1/products/export)")
	adminEmail := flag.String("admin-email", "", "create an admin account with this email, or promote the existing user")
	adminPassword := flag.String("admin-password", "", "password for -admin-email")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

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

	productService := service.NewProductService(
		repository.NewProductRepository(db.GetDB()),
		cfg.Cart.DefaultMaxItemsPerOrder,
	)

	if !*yes {
		fmt.Printf("Seed database %q (%s)? (yes/no): ", cfg.Database.DBName, cfg.Database.Driver)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Seed cancelled.")
			return
		}
	}

	ctx := context.Background()

	if *filePath != "" {
		if err := importSheet(ctx, productService, *filePath); err != nil {
			log.Fatal("Failed to import stock sheet:", err)
		}
	} else {
		created := seedDemoCatalog(ctx, productService)
		fmt.Printf("Demo catalog: %d products created\n", created)
	}

	if *adminEmail != "" {
		if err := createAdmin(repository.NewUserRepository(db.GetDB()), *adminEmail, *adminPassword); err != nil {
			log.Fatal("Failed to create admin:", err)
		}
		fmt.Printf("Admin account ready: %s\n", *adminEmail)
	}

	fmt.Println("Seed completed successfully!")
}

func importSheet(ctx context.Context, products service.ProductService, path string) error {
	fmt.Printf("Reading XLSX file: %s\n", path)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	imported, err := products.ImportStockSheet(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Total products imported: %d\n", imported)
	return nil
}

func demoCatalog() []service.ProductInput {
	return []service.ProductInput{
		{
			SKU:              "TSHIRT-BASIC",
			Name:             "Basic T-Shirt",
			Description:      "Cotton crew neck",
			Price:            19.9,
			MRP:              24.9,
			MaxItemsPerOrder: 5,
			Variants: []model.Variant{
				{Title: "Black", Subvariants: []model.Subvariant{
					{Title: "M", Price: 19.9, MRP: 24.9, Quantity: 40},
					{Title: "L", Price: 19.9, MRP: 24.9, Quantity: 25},
				}},
				{Title: "White", Subvariants: []model.Subvariant{
					{Title: "M", Price: 17.9, MRP: 24.9, Quantity: 30},
					{Title: "L", Price: 17.9, MRP: 24.9, Quantity: 0},
				}},
			},
		},
		{
			SKU:              "PHONE-X",
			Name:             "Phone X",
			Description:      "6.1 inch display",
			Price:            699,
			MRP:              799,
			MaxItemsPerOrder: 2,
			Variants: []model.Variant{
				{Title: "Graphite", Price: 699, MRP: 799, Quantity: 12},
				{Title: "Silver", Price: 699, MRP: 799, Quantity: 3},
			},
		},
		{
			SKU:         "MUG-CLASSIC",
			Name:        "Classic Mug",
			Description: "350ml ceramic",
			Price:       9.5,
			MRP:         12,
			Quantity:    100,
		},
	}
}

func seedDemoCatalog(ctx context.Context, products service.ProductService) int {
	created := 0
	for _, input := range demoCatalog() {
		if _, err := products.CreateProduct(ctx, input); err != nil {
			if errors.Is(err, service.ErrSKUExists) {
				fmt.Printf("Skipping %s: already exists\n", input.SKU)
				continue
			}
			log.Fatalf("Failed to create %s: %v", input.SKU, err)
		}
		created++
	}
	return created
}

func createAdmin(users repository.UserRepository, email, password string) error {
	if err := util.ValidatePassword(password); err != nil {
		return err
	}
	existing, err := users.FindByEmail(email)
	if err == nil {
		if existing.Role == model.RoleAdmin {
			fmt.Printf("Skipping admin %s: already an admin\n", email)
			return nil
		}
		existing.Role = model.RoleAdmin
		fmt.Printf("Promoting existing user %s to admin\n", email)
		return users.Update(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}
	return users.Create(&model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	})
}
