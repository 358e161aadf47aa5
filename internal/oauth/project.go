package oauth

import (
	"fmt"
	"math/rand"
)

var (
	projectAdjectives = []string{"useful", "bright", "swift", "calm", "bold"}
	projectNouns      = []string{"fuze", "wave", "spark", "flow", "core"}
)

// RandomProjectID fabricates an adjective-noun-number project id in the
// shape Google auto-assigns to personal accounts.
func RandomProjectID() string {
	adj := projectAdjectives[rand.Intn(len(projectAdjectives))]
	noun := projectNouns[rand.Intn(len(projectNouns))]
	return fmt.Sprintf("%s-%s-%d", adj, noun, rand.Intn(100000))
}
