package web

import "embed"

// StaticFS holds the embedded stylesheet and sign-in script.
//
//go:embed static/*
var StaticFS embed.FS
