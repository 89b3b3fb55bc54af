package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	v1 "github.com/ebsnet/blockchain/business/web/v1"
)

// get calls the node and decodes the response into out.
func get(path string, out any) error {
	resp, err := http.Get(url + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

// post sends the value as JSON to the node and decodes the response into out.
func post(path string, in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := http.Post(url+path, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var er v1.ErrorResponse
		if err := json.Unmarshal(body, &er); err != nil {
			return fmt.Errorf("status %d: %s", resp.StatusCode, body)
		}

		if er.Kind != "" {
			return fmt.Errorf("status %d: %s: %s", resp.StatusCode, er.Kind, er.Error)
		}
		return fmt.Errorf("status %d: %s %v", resp.StatusCode, er.Error, er.Fields)
	}

	return json.Unmarshal(body, out)
}
