// Package dxcc はコールサインプレフィックスから地理・ゾーン情報を解決する分類器を提供する。
//
// 分類データはbigcty形式のcty.csv（列: 主プレフィックス, 国名, DXCC番号, 大陸,
// CQゾーン, ITUゾーン, 緯度, 経度, タイムゾーン, プレフィックスリスト）と、
// 州/プロバンスを判定できるプレフィックスのみを列挙したstates.csvから構築する。
// 埋め込みのスナップショットを初期データとし、実行中はctyfetchワーカーが
// 取得した最新データへアトミックに入れ替えられる。
package dxcc

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

//go:embed cty.csv
var ctyData []byte

//go:embed states.csv
var statesData []byte

// prefixRe はプレフィックスリストの1エントリからプレフィックス本体を取り出す。
// 先頭の '='（完全一致コールサイン）とゾーン上書きサフィックスを除去する。
var prefixRe = regexp.MustCompile(`^(?:=|)(\w+).*$`)

// Entity はコールサインから解決された地理・ゾーン属性を表す。
// 未知のプレフィックスはゼロ値（空の国・大陸、ゾーン0）になる。これはエラーではない。
type Entity struct {
	Country   string // DXCC主プレフィックス（国コードとして使用）
	Continent string
	CQZone    int
	ITUZone   int
	State     string // 州/プロバンス。判定できない場合は空。
}

// Classifier はプレフィックス最長一致によるコールサイン分類器。
// Lookupと並行してReloadによるテーブル入れ替えが行われるため、内部はRWMutexで保護する。
type Classifier struct {
	mu          sync.RWMutex
	prefixes    map[string]Entity
	maxLen      int
	countries   map[string]struct{}
	states      map[string]string
	maxStateLen int
}

// New は埋め込みスナップショットから分類器を生成する。
func New() (*Classifier, error) {
	return NewFromReaders(bytes.NewReader(ctyData), bytes.NewReader(statesData))
}

// NewFromReaders はcty.csvとstates.csvのリーダーから分類器を生成する。
func NewFromReaders(cty, states io.Reader) (*Classifier, error) {
	c := &Classifier{}

	prefixes, countries, maxLen, err := parseCty(cty)
	if err != nil {
		return nil, err
	}
	c.prefixes = prefixes
	c.countries = countries
	c.maxLen = maxLen

	stateMap, maxStateLen, err := parseStates(states)
	if err != nil {
		return nil, err
	}
	c.states = stateMap
	c.maxStateLen = maxStateLen

	return c, nil
}

// Lookup はコールサインをEntityに解決する。プレフィックス最長一致で検索し、
// 未知のコールサインはゼロ値のEntityを返す（エラーにはしない）。
func (c *Classifier) Lookup(call string) Entity {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" {
		return Entity{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var ent Entity
	max := c.maxLen
	if len(call) < max {
		max = len(call)
	}
	for l := max; l >= 1; l-- {
		if e, ok := c.prefixes[call[:l]]; ok {
			ent = e
			break
		}
	}

	max = c.maxStateLen
	if len(call) < max {
		max = len(call)
	}
	for l := max; l >= 1; l-- {
		if s, ok := c.states[call[:l]]; ok {
			ent.State = s
			break
		}
	}

	return ent
}

// Reload は新しいcty.csvデータでプレフィックステーブルを入れ替える。
// パースに失敗した場合は既存テーブルを維持してエラーを返す。
// states.csvは埋め込みデータのまま変更しない。
func (c *Classifier) Reload(cty io.Reader) error {
	prefixes, countries, maxLen, err := parseCty(cty)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.prefixes = prefixes
	c.countries = countries
	c.maxLen = maxLen
	c.mu.Unlock()

	return nil
}

// KnownCountry は国コード（DXCC主プレフィックス）がテーブル上で認識されるかを返す。
// フィルタトークンの検証に使用する。
func (c *Classifier) KnownCountry(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.countries[code]
	return ok
}

// KnownState は州/プロバンスコードがテーブル上で認識されるかを返す。
func (c *Classifier) KnownState(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.states {
		if s == code {
			return true
		}
	}
	return false
}

// Size は登録済みプレフィックス数を返す。リロードのログ出力用。
func (c *Classifier) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prefixes)
}

// parseCty はbigcty形式のCSVをプレフィックスマップに変換する。
func parseCty(r io.Reader) (map[string]Entity, map[string]struct{}, int, error) {
	prefixes := make(map[string]Entity)
	countries := make(map[string]struct{})
	maxLen := 0

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("cty.csvのパースに失敗しました: %w", err)
	}

	for _, row := range rows {
		if len(row) < 10 {
			continue
		}
		primary := strings.Trim(strings.TrimSpace(row[0]), "*")
		cq, _ := strconv.Atoi(strings.TrimSpace(row[4]))
		itu, _ := strconv.Atoi(strings.TrimSpace(row[5]))
		ent := Entity{
			Country:   primary,
			Continent: strings.TrimSpace(row[3]),
			CQZone:    cq,
			ITUZone:   itu,
		}

		countries[primary] = struct{}{}
		prefixes[primary] = ent
		if len(primary) > maxLen {
			maxLen = len(primary)
		}

		for _, prefix := range parsePrefixList(row[9]) {
			prefixes[prefix] = ent
			if len(prefix) > maxLen {
				maxLen = len(prefix)
			}
		}
	}

	if len(prefixes) == 0 {
		return nil, nil, 0, fmt.Errorf("cty.csvに有効なエントリがありません")
	}

	return prefixes, countries, maxLen, nil
}

// parsePrefixList はプレフィックスリスト列（";"終端、空白区切り）を分解する。
func parsePrefixList(field string) []string {
	var prefixes []string
	for _, entry := range strings.Fields(strings.TrimSuffix(strings.TrimSpace(field), ";")) {
		match := prefixRe.FindStringSubmatch(entry)
		if match != nil {
			prefixes = append(prefixes, strings.ToUpper(match[1]))
		}
	}
	return prefixes
}

// parseStates はstates.csv（prefix,state）を州マップに変換する。
func parseStates(r io.Reader) (map[string]string, int, error) {
	states := make(map[string]string)
	maxLen := 0

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("states.csvのパースに失敗しました: %w", err)
	}

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		prefix := strings.ToUpper(strings.TrimSpace(row[0]))
		state := strings.ToUpper(strings.TrimSpace(row[1]))
		if prefix == "" || state == "" {
			continue
		}
		states[prefix] = state
		if len(prefix) > maxLen {
			maxLen = len(prefix)
		}
	}

	return states, maxLen, nil
}
