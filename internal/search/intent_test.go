package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"James Walsh", IntentPersonName},
		{"Maria Gonzalez", IntentPersonName},
		{"Jo Li", IntentGeneral},          // tokens too short
		{"james walsh", IntentGeneral},    // not capitalized
		{"James Walsh CPA", IntentGeneral}, // three tokens, no rule matches
		{"who is the ceo?", IntentExecutiveRole},
		{"who is the managing director", IntentExecutiveRole},
		{"tax consulting services", IntentService},
		{"audit solutions", IntentService},
		{"how do I file quarterly taxes", IntentHowTo},
		{"what happened last quarter", IntentHowTo},
		{"contact us", IntentNavigational},
		{"careers", IntentNavigational},
		{"download the brochure", IntentTransactional},
		{"hire a consultant", IntentTransactional},
		{"quarterly market outlook", IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Satisfies both person-name and service rules; person-name is first.
	assert.Equal(t, IntentPersonName, Classify("Consulting Services"))
}

func TestInstructionsPresentForSpecificIntents(t *testing.T) {
	assert.NotEmpty(t, IntentPersonName.Instructions())
	assert.NotEmpty(t, IntentHowTo.Instructions())
	assert.Empty(t, IntentGeneral.Instructions())
}
