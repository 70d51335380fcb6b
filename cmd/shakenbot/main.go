package main

import "github.com/BonnierNews/shakenbot/bot"

func main() {
	bot.Execute()
}
