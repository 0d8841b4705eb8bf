package timetable

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	attributeCellSelector = "td[data-week][data-begin-unit][data-end-unit]"
	nameSelector          = "div.mtt_item_kcmc"
	roomSelector          = "div.mtt_item_room"
)

// AttributeExtractor reads cells that carry their position as data attributes:
//
//	<td data-week="1" data-begin-unit="1" data-end-unit="2">
//	  <div class="mtt_item_kcmc">高等数学<span>(必修)</span></div>
//	  <div class="mtt_item_room">[1-16周],第1-2节,南湖校区,博学主楼-107</div>
//	</td>
type AttributeExtractor struct {
	Recorder Recorder
}

// Name implements Extractor.
func (e *AttributeExtractor) Name() string { return StrategyAttribute }

// Extract implements Extractor. Input may be a full document or a fragment
// such as a bare <td>.
func (e *AttributeExtractor) Extract(ctx context.Context, src string) ([]Course, error) {
	doc, err := parseMarkup(src)
	if err != nil {
		return nil, err
	}

	cells := doc.Find(attributeCellSelector)
	c := newCollector(ctx, StrategyAttribute, e.Recorder, cells.Length())
	cells.Each(func(_ int, td *goquery.Selection) {
		c.visit(td, c.attributeCell)
	})
	return c.courses, nil
}

// ExtractByAttributes runs the attribute strategy without telemetry.
func ExtractByAttributes(ctx context.Context, html string) ([]Course, error) {
	return (&AttributeExtractor{}).Extract(ctx, html)
}

func (c *collector) attributeCell(td *goquery.Selection) {
	day, errDay := intAttr(td, "data-week")
	begin, errBegin := intAttr(td, "data-begin-unit")
	end, errEnd := intAttr(td, "data-end-unit")
	if errDay != nil || errBegin != nil || errEnd != nil {
		c.skip(SkipBadAttribute,
			"data_week", td.AttrOr("data-week", ""),
			"data_begin_unit", td.AttrOr("data-begin-unit", ""),
			"data_end_unit", td.AttrOr("data-end-unit", ""))
		return
	}
	if end < begin {
		c.skip(SkipEndBeforeBegin, "begin", begin, "end", end)
		return
	}
	if day < MinDayOfWeek || day > MaxDayOfWeek || begin < MinPeriod || begin > MaxPeriod {
		c.skip(SkipOutOfRange, "day", day, "begin", begin)
		return
	}

	nameNode := td.Find(nameSelector).First()
	if nameNode.Length() == 0 {
		c.skip(SkipMissingName, "day", day, "begin", begin)
		return
	}
	// Nested spans hold annotations such as course type; the clone keeps
	// the caller's document intact.
	nameNode = nameNode.Clone()
	nameNode.Find("span").Remove()
	name := normalizedText(nameNode)
	if name == "" {
		c.skip(SkipEmptyName, "day", day, "begin", begin)
		return
	}

	room, weeks := ParseRoomAndWeeks(normalizedText(td.Find(roomSelector).First()))
	c.add(Course{
		Name:        name,
		Room:        room,
		Weeks:       weeks,
		DayOfWeek:   day,
		StartPeriod: begin,
		PeriodSpan:  end - begin + 1,
	})
}

func intAttr(s *goquery.Selection, name string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s.AttrOr(name, "")))
}
