package main

import "github.com/ebsnet/blockchain/app/wallet/cmd"

func main() {
	cmd.Execute()
}
