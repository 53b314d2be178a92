/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/deepcogs/deepcogs/cmd"
)

func main() {
	err := godotenv.Load()
	if os.IsNotExist(err) {
		// Running without a .env file is fine; viper picks up flags and config.
	} else if err != nil {
		log.Fatalf("failed loading .env file: %s", err)
	}

	cmd.Execute()
}
