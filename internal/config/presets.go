package config

import "sort"

// Profiles are named run configurations: quick iteration while a model
// is being debugged, the production defaults, and a pack-rat archive
// mode for audits.
var Profiles = map[string]*Config{
	"quick": {
		Engine:      DefaultEngine,
		WorkRoot:    DefaultWorkRoot,
		ResultsRoot: DefaultResultsRoot,
		LogsRoot:    DefaultLogsRoot,
		NumCPUs:     DefaultNumCPUs,
		Viewer:      ViewerConfig{WaitSeconds: 0, PollSeconds: DefaultViewerPoll},
		Peak: PeakConfig{
			SmoothWindow: DefaultSmoothWindow,
			MinPeakFrac:  DefaultMinPeakFrac,
			DropRatio:    DefaultDropRatio,
			PersistN:     DefaultPersistN,
		},
		Images: ImageConfig{MinRequired: 0, Modes: 0},
	},
	"debug": {
		Engine:        DefaultEngine,
		WorkRoot:      DefaultWorkRoot,
		ResultsRoot:   DefaultResultsRoot,
		LogsRoot:      DefaultLogsRoot,
		KeepWorkFiles: true,
		SaveModels:    true,
		NumCPUs:       1,
		Viewer:        ViewerConfig{WaitSeconds: DefaultViewerWait, PollSeconds: DefaultViewerPoll},
		Peak: PeakConfig{
			SmoothWindow: DefaultSmoothWindow,
			MinPeakFrac:  DefaultMinPeakFrac,
			DropRatio:    DefaultDropRatio,
			PersistN:     DefaultPersistN,
		},
		Images: ImageConfig{MinRequired: 0, Modes: DefaultImageModes},
	},
	"archive": {
		Engine:        DefaultEngine,
		WorkRoot:      DefaultWorkRoot,
		ResultsRoot:   DefaultResultsRoot,
		LogsRoot:      DefaultLogsRoot,
		KeepWorkFiles: true,
		NumCPUs:       DefaultNumCPUs,
		Viewer:        ViewerConfig{WaitSeconds: DefaultViewerWait, PollSeconds: DefaultViewerPoll},
		Peak: PeakConfig{
			SmoothWindow: DefaultSmoothWindow,
			MinPeakFrac:  DefaultMinPeakFrac,
			DropRatio:    DefaultDropRatio,
			PersistN:     DefaultPersistN,
		},
		Images: ImageConfig{MinRequired: DefaultMinImages, Modes: 5},
	},
}

// Profile returns a copy of the named profile, nil when unknown.
func Profile(name string) *Config {
	cfg, ok := Profiles[name]
	if !ok {
		return nil
	}
	out := *cfg
	return &out
}

// ListProfiles names the available profiles sorted alphabetically.
func ListProfiles() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
