// Package all imports all available providers for side-effect registration.
//
// Import this package from your main to ensure all providers are registered:
//
//	import _ "github.com/sodersten/tipsvalue/internal/providers/all"
package all

import (
	_ "github.com/sodersten/tipsvalue/internal/providers/feed"
	_ "github.com/sodersten/tipsvalue/internal/providers/simulated"
)
