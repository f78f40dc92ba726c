package utils

import (
	"fmt"

	"github.com/Pallinder/go-randomdata"
)

const nameAttempts = 16

// RandomNameGenerator hands out display names that are unique within the
// generator. Zero value is ready to use.
type RandomNameGenerator struct {
	used map[string]int
}

// RandomName returns a silly name. When the word list keeps colliding the
// name gets a numeric suffix instead of retrying forever.
func (g *RandomNameGenerator) RandomName() string {
	if g.used == nil {
		g.used = make(map[string]int)
	}
	var name string
	for i := 0; i < nameAttempts; i++ {
		name = randomdata.SillyName()
		if g.Reserve(name) {
			return name
		}
	}
	for {
		g.used[name]++
		candidate := fmt.Sprintf("%s %d", name, g.used[name]+1)
		if g.Reserve(candidate) {
			return candidate
		}
	}
}

// Reserve marks name as taken. It reports false if the name was already used.
func (g *RandomNameGenerator) Reserve(name string) bool {
	if g.used == nil {
		g.used = make(map[string]int)
	}
	if _, exists := g.used[name]; exists {
		return false
	}
	g.used[name] = 0
	return true
}
