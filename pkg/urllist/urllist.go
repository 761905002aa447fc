package urllist

import (
	jsoniter "github.com/json-iterator/go"
)

// Separator はラベルとURLを連結する区切り文字列です。
const Separator = "::"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind は配列要素の形を表します。
type Kind int

const (
	Bare   Kind = iota // "url"
	Tuple1             // ["url"]
	Tuple2             // ["label", "url"]
)

func (k Kind) String() string {
	switch k {
	case Bare:
		return "bare"
	case Tuple1:
		return "tuple1"
	case Tuple2:
		return "tuple2"
	default:
		return "unknown"
	}
}

// Spec は入力配列の1要素をデコードした結果です。
// Label は Kind が Tuple2 の場合のみ設定されます。
type Spec struct {
	Kind  Kind
	Label string
	URL   string
}

// String は正規化された識別子 (URL または label::url) を返します。
func (s Spec) String() string {
	if s.Kind == Tuple2 {
		return s.Label + Separator + s.URL
	}
	return s.URL
}

// Decode はJSONテキストをデコードし、要素ごとの Spec を入力順に返します。
func Decode(jsonText string) ([]Spec, error) {
	var root any
	if err := json.UnmarshalFromString(jsonText, &root); err != nil {
		return nil, &MalformedInputError{Index: -1, Reason: "JSONとして解析できません", Err: err}
	}

	items, ok := root.([]any)
	if !ok {
		return nil, malformed(-1, "トップレベルが配列ではありません (%T)", root)
	}

	specs := make([]Spec, 0, len(items))
	for i, item := range items {
		spec, err := decodeItem(i, item)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Parse はJSONテキストを正規化されたURLリストに変換します。
// 出力は入力配列と同じ長さ・同じ順序の新しいスライスです。
// 文字列中の不正なUTF-8バイト列は U+FFFD に置き換えず、そのまま返します。
func Parse(jsonText string) ([]string, error) {
	specs, err := Decode(jsonText)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(specs))
	for i, spec := range specs {
		urls[i] = spec.String()
	}
	return urls, nil
}

func decodeItem(index int, item any) (Spec, error) {
	switch v := item.(type) {
	case string:
		return Spec{Kind: Bare, URL: v}, nil
	case []any:
		if len(v) != 1 && len(v) != 2 {
			return Spec{}, malformed(index, "組の要素数は1または2である必要があります (実際: %d)", len(v))
		}
		members, err := tupleMembers(index, v)
		if err != nil {
			return Spec{}, err
		}
		if len(members) == 1 {
			return Spec{Kind: Tuple1, URL: members[0]}, nil
		}
		return Spec{Kind: Tuple2, Label: members[0], URL: members[1]}, nil
	default:
		return Spec{}, malformed(index, "文字列でも配列でもありません (%T)", item)
	}
}

func tupleMembers(index int, tuple []any) ([]string, error) {
	members := make([]string, len(tuple))
	for i, m := range tuple {
		s, ok := m.(string)
		if !ok {
			return nil, malformed(index, "組の%d番目が文字列ではありません (%T)", i, m)
		}
		members[i] = s
	}
	return members, nil
}
