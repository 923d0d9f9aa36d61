package assets

import "errors"

var (
	ErrAssetNotFound    = errors.New("asset not found")
	ErrStaleAsset       = errors.New("cached asset is stale")
	ErrUnknownAssetType = errors.New("unknown asset type")
	ErrBuildFailed      = errors.New("asset build failed")
)
