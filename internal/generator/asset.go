package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

// ErrMalformedAsset is returned when an asset's data blob cannot be decoded
var ErrMalformedAsset = errors.New("malformed generator asset data")

// Asset is a user-defined generator record as kept by the asset store
type Asset struct {
	ID          string   `json:"id"`
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Data        string   `json:"data"`
}

// AssetData is the JSON blob stored in Asset.Data
type AssetData struct {
	URL           string `json:"url"`
	AccessToken   string `json:"accessToken"`
	Method        string `json:"method"`
	RequestField  string `json:"requestField"`
	ResponseField string `json:"responseField"`
}

// DecodeAssetData parses raw, repairing near-JSON input before giving up
func DecodeAssetData(raw string) (AssetData, error) {
	var data AssetData
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return data, fmt.Errorf("%w: empty", ErrMalformedAsset)
	}

	err := json.Unmarshal([]byte(raw), &data)
	if err == nil {
		return data, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return AssetData{}, fmt.Errorf("%w: %v", ErrMalformedAsset, err)
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return AssetData{}, fmt.Errorf("%w: %v", ErrMalformedAsset, err)
	}

	log.Debug().
		Int("original_bytes", len(raw)).
		Int("repaired_bytes", len(repaired)).
		Msg("Repaired generator asset data")
	return data, nil
}

// FromAsset converts a stored asset into a descriptor. Malformed data never
// fails the conversion: protocol fields fall back to their defaults.
func FromAsset(a Asset) Descriptor {
	d := Descriptor{
		ID:          a.ID,
		Category:    a.Category,
		Name:        a.Name,
		Description: a.Description,
	}

	data, err := DecodeAssetData(a.Data)
	if err != nil {
		log.Warn().Err(err).
			Str("asset_id", a.ID).
			Str("asset_name", a.Name).
			Msg("Using default protocol for generator asset")
		return d.WithDefaults()
	}

	d.EndpointURL = strings.TrimSpace(data.URL)
	d.AuthToken = data.AccessToken
	d.Method = Method(data.Method)
	d.RequestField = data.RequestField
	d.ResponseField = data.ResponseField
	return d.WithDefaults()
}

// FromAssets converts every asset, preserving order
func FromAssets(assets []Asset) []Descriptor {
	out := make([]Descriptor, 0, len(assets))
	for _, a := range assets {
		out = append(out, FromAsset(a))
	}
	return out
}
