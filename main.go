// Package main BookSwap API.
//
// @title           BookSwap API
// @version         1.0
// @description     Community book lending and swapping (requests, notifications, live delivery).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"bookswap/app/echoServer"
	authctrl "bookswap/app/echoServer/controller/auth"
	bookctrl "bookswap/app/echoServer/controller/book"
	notifctrl "bookswap/app/echoServer/controller/notification"
	reqctrl "bookswap/app/echoServer/controller/request"
	wsctrl "bookswap/app/echoServer/controller/ws"
	"bookswap/app/echoServer/validation"
	"bookswap/config"
	bookrepo "bookswap/repository/book"
	notifrepo "bookswap/repository/notification"
	pushrepo "bookswap/repository/push"
	reqrepo "bookswap/repository/request"
	userrepo "bookswap/repository/user"
	authsvc "bookswap/service/auth"
	booksvc "bookswap/service/book"
	notifsvc "bookswap/service/notification"
	remindersvc "bookswap/service/reminder"
	reqsvc "bookswap/service/request"
	"bookswap/session"
	"bookswap/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	rr := reqrepo.New(db)
	nr := notifrepo.New(db)

	var pr pushrepo.Repo
	if cfg.PushGatewayURL != "" {
		pr = pushrepo.NewHTTP(cfg.PushGatewayURL, cfg.PushAPIKey)
	} else {
		pr = pushrepo.NewNoop()
	}

	// session router (live channels)
	router := session.NewRouter(log)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(br, ur)
	ns := notifsvc.New(nr, router, pr, log)
	rs := reqsvc.New(db, rr, br, ur, ns, time.Duration(cfg.LoanPeriodDays)*24*time.Hour, log)
	rem := remindersvc.New(rr, ns, time.Duration(cfg.ReminderWindowHours)*time.Hour, log)

	// due-date sweep
	go rem.Run(ctx, time.Hour)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	reqC := &reqctrl.Controller{Svc: rs, V: v, Log: log}
	notifC := &notifctrl.Controller{Svc: ns, V: v, Log: log}
	wsC := &wsctrl.Controller{Router: router, JWTSecret: cfg.JWTSecret, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:         authC,
		Book:         bookC,
		Request:      reqC,
		Notification: notifC,
		WS:           wsC,
		JWTSecret:    cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
