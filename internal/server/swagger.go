package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Kensa Results API
// @version 0.1
// @description Run history and live progress for the kensa test harness.
// @BasePath /
