// Command seed fills a development database with sample packages and prints
// bearer tokens for the demo users.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Temutjin2k/droply/config"
	repo "github.com/Temutjin2k/droply/internal/adapter/postgres"
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/internal/service/auth"
	"github.com/Temutjin2k/droply/pkg/configparser"
	"github.com/Temutjin2k/droply/pkg/logger"
	"github.com/Temutjin2k/droply/pkg/postgres"
	"github.com/Temutjin2k/droply/pkg/trm"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

type demoUser struct {
	ID   string
	Name string
}

var (
	amina  = demoUser{ID: "3f1c2a9e-7b41-4d8e-9c1a-0d5e6f7a8b90", Name: "Amina"}
	karim  = demoUser{ID: "8a7b6c5d-4e3f-4a1b-9c8d-7e6f5a4b3c21", Name: "Karim"}
	yacine = demoUser{ID: "c0ffee00-1234-4abc-8def-001122334455", Name: "Yacine"}
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := &config.Config{}
	if err := configparser.LoadAndParseYaml(*configPath, cfg); err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if err := repo.Migrate(ctx, client.Pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	packages := repo.NewPackageRepo(client.Pool)
	events := repo.NewEventRepo(client.Pool)
	tx := trm.New(client.Pool)

	err = tx.Do(ctx, func(ctx context.Context) error {
		for _, p := range samplePackages() {
			created, err := packages.Insert(ctx, p)
			if err != nil {
				return fmt.Errorf("insert %q: %w", p.Title, err)
			}
			if err := events.CreateEvent(ctx, models.PackageEventRecord{
				PackageID: created.ID,
				EventType: types.EventPackageCreated,
				ActorID:   created.SenderID,
			}); err != nil {
				return fmt.Errorf("event for %q: %w", p.Title, err)
			}
			fmt.Printf("package %d\t%-10s\t%s\n", created.ID, created.Status, created.Title)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed packages: %v", err)
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, logger.Nop())
	for _, u := range []demoUser{amina, karim, yacine} {
		token, err := tokens.Issue(ctx, &models.User{ID: u.ID, Name: u.Name})
		if err != nil {
			log.Fatalf("issue token for %s: %v", u.Name, err)
		}
		fmt.Printf("\n%s (%s)\nAuthorization: Bearer %s\n", u.Name, u.ID, token)
	}
}

func samplePackages() []*models.Package {
	f := func(v float64) *float64 { return &v }
	karimID := karim.ID

	return []*models.Package{
		{
			SenderID:         amina.ID,
			Title:            "Birthday cake",
			Description:      "Phone: +213 555 10 20 30 - keep upright",
			Weight:           f(2.5),
			Price:            f(800),
			PickupAddress:    "Rue Didouche Mourad, Alger Centre",
			PickupLatitude:   f(36.7631),
			PickupLongitude:  f(3.0506),
			DropoffAddress:   "Bab Ezzouar",
			DropoffLatitude:  f(36.7213),
			DropoffLongitude: f(3.1838),
			Status:           types.StatusPending,
		},
		{
			// no coordinates: the map resolves them by geocoding or falls back
			SenderID:       amina.ID,
			Title:          "Library books",
			PickupAddress:  "Place des Martyrs, Alger",
			DropoffAddress: "Hydra, Alger",
			Status:         types.StatusPending,
		},
		{
			SenderID:         yacine.ID,
			DelivererID:      &karimID,
			Title:            "Laptop charger",
			PickupAddress:    "Kouba",
			PickupLatitude:   f(36.7219),
			PickupLongitude:  f(3.0853),
			DropoffAddress:   "El Biar",
			DropoffLatitude:  f(36.7695),
			DropoffLongitude: f(3.0319),
			Status:           types.StatusAssigned,
		},
		{
			SenderID:         amina.ID,
			DelivererID:      &karimID,
			Title:            "House keys",
			PickupAddress:    "Cheraga",
			PickupLatitude:   f(36.7669),
			PickupLongitude:  f(2.9592),
			DropoffAddress:   "Ben Aknoun",
			DropoffLatitude:  f(36.7579),
			DropoffLongitude: f(3.0086),
			CurrentLatitude:  f(36.7620),
			CurrentLongitude: f(2.9840),
			Status:           types.StatusInTransit,
		},
	}
}
