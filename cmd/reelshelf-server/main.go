package main

import (
	"fmt"
	"os"
)

// @title Reelshelf API
// @version 1.0
// @description Video bookmarking with collections, channels, likes, follows and moderation.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
