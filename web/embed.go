package web

import "embed"

// DistFS contains the static upload and conversion UI served by
// `ddlconv serve`.
//
//go:embed all:dist
var DistFS embed.FS
