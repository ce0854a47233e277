package core

import (
	"errors"
)

var (
	// A mandatory file (game profile, preload archive) could not be found.
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrDuplicateAsset       = errors.New("duplicate asset guid")
	ErrDuplicateFont        = errors.New("duplicate font index")
	ErrAssetNotFound        = errors.New("asset not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidState         = errors.New("invalid state")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrShaderCompilation    = errors.New("shader compilation failed")
	// Neither the requested nor the default language has a localization resource.
	ErrLocalizationConfiguration = errors.New("localization not configured")
)
