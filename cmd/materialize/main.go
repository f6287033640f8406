package main

import "github.com/KaurMahima/healthcare-sql-analytics/cli"

func main() {
	cli.Execute(cli.NewMaterializeCmd())
}
