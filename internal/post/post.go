// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package post assembles quick post starters from fixed template lists.
// Selection is random but driven by an injected source, so a seeded
// *rand.Rand gives repeatable output.
package post

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode"
)

// Platforms lists the supported platform identifiers.
var Platforms = []string{"instagram", "tiktok", "linkedin", "x", "facebook", "youtube"}

// Starter is a ready-to-edit post skeleton.
type Starter struct {
	Platform string   `json:"platform"`
	Hook     string   `json:"hook"`
	Body     string   `json:"body"`
	CTA      string   `json:"cta"`
	Hashtags []string `json:"hashtags"`
}

// Text joins the starter into a single post body.
func (s Starter) Text() string {
	parts := []string{s.Hook, s.Body, s.CTA}
	if len(s.Hashtags) > 0 {
		parts = append(parts, strings.Join(s.Hashtags, " "))
	}
	return strings.Join(parts, "\n\n")
}

// hooks open the post. %s is the topic.
var hooks = []string{
	"Nobody talks about this side of %s.",
	"Here's what I wish I knew about %s sooner.",
	"Stop scrolling if you care about %s.",
	"3 things about %s that changed everything for me.",
	"The biggest mistake people make with %s?",
	"I tried %s for 30 days. Here's what happened.",
	"Unpopular opinion: %s is easier than you think.",
}

// frames are the body skeletons. %s is the topic.
var frames = []string{
	"Start with the problem %s solves, then share one result you are proud of.",
	"Walk through your process for %s step by step, keeping each step to one line.",
	"Tell the story of the first time you tried %s and what surprised you.",
	"Share one myth about %s, then the truth with a quick example.",
	"List your top tools or tips for %s and why each one earns its place.",
}

// ctas close the post, per platform.
var ctas = map[string][]string{
	"instagram": {"Save this for later.", "Share it with a friend who needs it.", "Drop a comment with your take."},
	"tiktok":    {"Follow for part 2.", "Stitch this with your version.", "Comment your questions below."},
	"linkedin":  {"What would you add? Let me know in the comments.", "Repost if this helps your network.", "Follow for more practical insights."},
	"x":         {"Reply with your experience.", "Repost if you agree.", "Bookmark this thread."},
	"facebook":  {"Tell us what you think in the comments.", "Share with someone who'd enjoy this.", "Tag a friend who needs to see this."},
	"youtube":   {"Subscribe for the next one.", "Leave a comment with your questions.", "Watch the full breakdown on the channel."},
}

// stems are evergreen hashtags per platform.
var stems = map[string][]string{
	"instagram": {"#instagood", "#reels", "#explorepage", "#creator", "#contentcreator"},
	"tiktok":    {"#fyp", "#foryou", "#tiktoktips", "#learnontiktok", "#viral"},
	"linkedin":  {"#leadership", "#careergrowth", "#business", "#productivity", "#marketing"},
	"x":         {"#buildinpublic", "#thread", "#tips"},
	"facebook":  {"#community", "#smallbusiness", "#tips"},
	"youtube":   {"#shorts", "#youtube", "#howto", "#tutorial"},
}

// maxStems caps how many evergreen tags are added.
const maxStems = 3

// UnknownPlatformError is returned for platforms without templates.
type UnknownPlatformError struct {
	Platform string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %q (want one of: %s)", e.Platform, strings.Join(Platforms, ", "))
}

// NewStarter builds a starter for topic on platform, choosing one hook, one
// frame, one call to action and a few platform hashtags with rng.
func NewStarter(topic, platform string, rng *rand.Rand) (Starter, error) {
	topic = strings.TrimSpace(topic)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if topic == "" {
		return Starter{}, fmt.Errorf("topic is required")
	}
	platformCTAs, ok := ctas[platform]
	if !ok {
		return Starter{}, &UnknownPlatformError{Platform: platform}
	}

	s := Starter{
		Platform: platform,
		Hook:     fmt.Sprintf(pick(rng, hooks), topic),
		Body:     fmt.Sprintf(pick(rng, frames), topic),
		CTA:      pick(rng, platformCTAs),
	}

	tag := TopicTag(topic)
	if tag != "" {
		s.Hashtags = append(s.Hashtags, tag)
	}
	for _, stem := range sample(rng, stems[platform], maxStems) {
		if stem != tag {
			s.Hashtags = append(s.Hashtags, stem)
		}
	}
	return s, nil
}

// TopicTag turns a topic into a single hashtag: "home coffee bar" becomes
// "#homecoffeebar". Returns "" when the topic has no letters or digits.
func TopicTag(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

// sample returns up to n distinct entries, in list order.
func sample(rng *rand.Rand, list []string, n int) []string {
	if n >= len(list) {
		return append([]string(nil), list...)
	}
	idx := rng.Perm(len(list))[:n]
	sort.Ints(idx)
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, list[i])
	}
	return out
}
