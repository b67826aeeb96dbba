package server

import (
	_ "embed"
)

// Описание API, отдаётся через Swagger UI на /swagger
//
//go:embed openapi.json
var openAPISpec []byte
