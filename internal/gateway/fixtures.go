package gateway

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// fixtureBytes returns the bundled dataset for a resource.
func fixtureBytes(res Resource) ([]byte, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + res.Name + ".json")
	if err != nil {
		return nil, fmt.Errorf("gateway: no fixtures for %s: %w", res.Name, err)
	}
	return data, nil
}

// FixtureList decodes the bundled list for res.
func FixtureList[T any](res Resource) ([]T, error) {
	data, err := fixtureBytes(res)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("gateway: fixtures %s: %w", res.Name, err)
	}
	return out, nil
}

// FixtureOverview decodes the bundled dashboard counters.
func FixtureOverview() (Overview, error) {
	var out Overview
	data, err := fixtureBytes(Dashboard)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("gateway: fixtures %s: %w", Dashboard.Name, err)
	}
	return out, nil
}
