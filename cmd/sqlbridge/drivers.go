package main

// Drivers linked into the CLI. The library itself is driver-agnostic;
// anything registered with database/sql works through a raw url profile.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)
