package fetcher

import (
	"encoding/json"
	"os"
)

func readJSONFile(path string, dest interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}
