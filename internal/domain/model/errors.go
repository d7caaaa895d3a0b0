package model

import "errors"

var (
	// ErrResourceNotFound is reported when no asset exists for a key.
	ErrResourceNotFound = errors.New("video resource not found")

	// ErrAssetUnplayable is reported when an asset exists but fails media validation.
	ErrAssetUnplayable = errors.New("video asset is not playable")

	// ErrConstructionFailed is reported when the player engine cannot build a player.
	ErrConstructionFailed = errors.New("video player construction failed")

	// ErrPlaybackFailed is reported asynchronously by a player that was already cached.
	ErrPlaybackFailed = errors.New("video playback failed")

	// ErrCreationSuperseded is reported to waiters of a creation that was cleared before it completed.
	ErrCreationSuperseded = errors.New("video player creation superseded by clear")

	// ErrInvalidKey is reported for keys that cannot name a bundled asset.
	ErrInvalidKey = errors.New("invalid video key")
)
