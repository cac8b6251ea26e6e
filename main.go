/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
// @title           Liquidity Loan Origination API
// @version         1.0
// @description     Loan application lifecycle API server
//
// @host      localhost:8080
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a session token
package main

import "github.com/AbodeTech/Liquidity-sub001/cmd"

func main() {
	cmd.Execute()
}
