package web

import "embed"

// TemplatesFS holds the page templates; layout.html wraps every page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
