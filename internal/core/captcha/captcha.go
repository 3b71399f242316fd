// Package captcha generates the emoji puzzle shown to joining users
package captcha

import (
	"math/rand"
)

// Item is one emoji with the bilingual description used in the prompt
type Item struct {
	Emoji       string
	Description string
}

// Items is the pool puzzles draw from
var Items = []Item{
	{"\U0001F984", "единорог/unicorn"},
	{"\U0001F528", "молоток/hammer"},
	{"\U0001F431", "кошка/cat"},
	{"⚓", "якорь/anchor"},
	{"\U0001F42C", "дельфин/dolphin"},
	{"\U0001F34F", "яблоко/apple"},
	{"⚽", "мяч/ball"},
	{"\U0001F434", "лошадь/horse"},
	{"\U0001F986", "утка/duck"},
	{"\U0001F99D", "енот/raccoon"},
	{"\U0001F989", "сова/owl"},
	{"\U0001F422", "черепаха/turtle"},
	{"\U0001F980", "краб/crab"},
	{"\U0001F34C", "банан/banana"},
	{"\U0001F349", "арбуз/watermelon"},
	{"⌚", "часы/clock"},
	{"✈️", "самолёт/plane"},
	{"\U0001F52A", "нож/knife"},
	{"\U0001F455", "футболка/shirt"},
	{"✂️", "ножницы/scissors"},
	{"\U0001F40B", "кит/whale"},
	{"\U0001F418", "слон/elephant"},
	{"\U0001F9A9", "фламинго/flamingo"},
	{"\U0001F37F", "попкорн/popcorn"},
	{"\U0001F98B", "бабочка/butterfly"},
	{"\U0001F451", "корона/crown"},
	{"\U0001F480", "череп/skull"},
	{"\U0001FA83", "бумеранг/boomerang"},
	{"\U0001F442", "ухо/ear"},
}

// ButtonCount is how many options a puzzle presents
const ButtonCount = 8

// Puzzle is one generated challenge
// Options index into Items, Answer is the index within Options of the
// item named by Prompt
type Puzzle struct {
	Options []int
	Answer  int
}

// Prompt returns the description of the correct item
func (p Puzzle) Prompt() string { return Items[p.Options[p.Answer]].Description }

// CorrectItem returns the index into Items the user must pick
func (p Puzzle) CorrectItem() int { return p.Options[p.Answer] }

// Generate draws ButtonCount distinct items and picks one as the answer
func Generate(rng *rand.Rand) Puzzle {
	picked := make(map[int]struct{}, ButtonCount)
	options := make([]int, 0, ButtonCount)
	for len(options) < ButtonCount {
		n := rng.Intn(len(Items))
		if _, dup := picked[n]; dup {
			continue
		}
		picked[n] = struct{}{}
		options = append(options, n)
	}
	return Puzzle{
		Options: options,
		Answer:  rng.Intn(ButtonCount),
	}
}
