package router

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/partsdesk/internal/convctx"
	"github.com/ziadkadry99/partsdesk/internal/respcache"
	"github.com/ziadkadry99/partsdesk/internal/stream"
	"github.com/ziadkadry99/partsdesk/internal/triage"
)

// WarmEntries renders canned diagnostics as cache entries, fingerprinted the
// way the router keys the opening question of a conversation about that
// symptom.
func WarmEntries(ctx context.Context, ds []triage.Diagnostic) []respcache.WarmEntry {
	scratch := convctx.NewStore(nil, nil)
	var out []respcache.WarmEntry
	for _, d := range ds {
		for _, at := range d.Appliances {
			query := symptomQuery(string(at), d.Symptom)
			conv := scratch.Update(ctx, "warm:"+query, query)
			out = append(out, respcache.WarmEntry{
				Query:     query,
				Slots:     conv.Slots(),
				Fragments: []stream.Fragment{stream.AnswerText(d.Response), stream.Done(0)},
			})
		}
	}
	return out
}

func symptomQuery(appliance, symptom string) string {
	if symptom == convctx.SymptomIceMaker {
		return fmt.Sprintf("my %s ice maker is not working", appliance)
	}
	return fmt.Sprintf("my %s is %s", appliance, symptom)
}
