package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"maintenance-service/migrations"
	"maintenance-service/pkg/config"
	"maintenance-service/pkg/database/postgresql"
	applogger "maintenance-service/pkg/logger"
	"maintenance-service/pkg/utils"
	"maintenance-service/seeders"
)

type Global struct {
	Config *config.Config
	Logger *zap.Logger
}

type CLI struct {
	ConfigFile string `name:"config" short:"c" help:"Путь к YAML-конфигурации" env:"CONFIG_FILE"`
	LogLevel   string `name:"log-level" help:"Уровень логирования" default:"info"`

	Migrate      MigrateCmd      `cmd:"" help:"Применить, откатить или показать миграции"`
	Seed         SeedCmd         `cmd:"" help:"Наполнить БД администратором и демонстрационным оборудованием"`
	HashPassword HashPasswordCmd `cmd:"" name:"hash-password" help:"Напечатать bcrypt-хеш пароля"`
}

type MigrateCmd struct {
	Direction string `arg:"" optional:"" enum:"up,down,status" default:"up" help:"up, down или status"`
}

func (c *MigrateCmd) Run(g *Global) error {
	ctx := context.Background()
	db, err := postgresql.ConnectDB(ctx, g.Config.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgresql.Migrate(ctx, db, migrations.FS, c.Direction); err != nil {
		return err
	}
	g.Logger.Info("Миграции выполнены", zap.String("direction", c.Direction))
	return nil
}

type SeedCmd struct {
	AdminEmail    string `help:"Email администратора" default:"admin@example.com" env:"SEED_ADMIN_EMAIL"`
	AdminName     string `help:"ФИО администратора" default:"Администратор"`
	AdminPassword string `help:"Пароль администратора" env:"SEED_ADMIN_PASSWORD" required:""`
	Demo          bool   `help:"Добавить демонстрационное оборудование со статусом OPERATION"`
}

func (c *SeedCmd) Run(g *Global) error {
	ctx := context.Background()
	db, err := postgresql.ConnectDB(ctx, g.Config.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgresql.Migrate(ctx, db, migrations.FS, "up"); err != nil {
		return err
	}

	adminID, err := seeders.SeedAdmin(ctx, db, c.AdminEmail, c.AdminName, c.AdminPassword, g.Logger)
	if err != nil {
		return err
	}
	if !c.Demo {
		return nil
	}

	equipmentIDs, err := seeders.SeedDemoEquipment(ctx, db, g.Logger)
	if err != nil {
		return err
	}
	return seeders.SeedInitialStatuses(ctx, db, adminID, equipmentIDs, g.Logger)
}

type HashPasswordCmd struct {
	Password string `arg:"" help:"Пароль в открытом виде"`
}

func (c *HashPasswordCmd) Run(_ *Global) error {
	hash, err := utils.HashPassword(c.Password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("seed"),
		kong.Description("Миграции и начальное наполнение БД сервиса обслуживания"),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := applogger.NewLogger(cli.LogLevel, "")
	defer logger.Sync() //nolint:errcheck

	kctx.FatalIfErrorf(kctx.Run(&Global{Config: cfg, Logger: logger}))
}
