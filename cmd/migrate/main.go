package main

import (
	"flag"
	"log"

	"kindergarten_billing/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var down = flag.Bool("down", false, "回滚一个版本")

func main() {
	flag.Parse()

	config.LoadConfig()
	cfg := config.GlobalConfig.Database
	dsn := "postgres://" + cfg.User + ":" + cfg.Password + "@" + cfg.Host + ":" + cfg.Port + "/" + cfg.DBName + "?sslmode=" + cfg.SSLMode

	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		log.Fatal(err)
	}

	if *down {
		if err := m.Steps(-1); err != nil {
			log.Fatal(err)
		}
		log.Println("Rolled back one version")
		return
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		// dirty 状态时强制回到当前版本后重试
		if version, dirty, verr := m.Version(); verr == nil && dirty {
			log.Printf("Database is dirty at version %d, forcing...", version)
			if err := m.Force(int(version)); err != nil {
				log.Fatal("Failed to force version:", err)
			}
			if err := m.Up(); err != nil && err != migrate.ErrNoChange {
				log.Fatal(err)
			}
		} else {
			log.Fatal(err)
		}
	}

	log.Println("Migration successful")
}
