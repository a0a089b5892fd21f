package diffengine

import "fmt"

// walkDiff recursively compares golden and candidate at path, appending
// to res.Differences (or ignoredSet).
func walkDiff(path string, golden, candidate interface{}, cfg Config, res *Result, ignoredSet map[string]bool) {
	gMap, gIsMap := golden.(map[string]interface{})
	cMap, cIsMap := candidate.(map[string]interface{})
	if gIsMap && cIsMap {
		walkMap(path, gMap, cMap, cfg, res, ignoredSet)
		return
	}

	gArr, gIsArr := golden.([]interface{})
	cArr, cIsArr := candidate.([]interface{})
	if gIsArr && cIsArr {
		walkArray(path, gArr, cArr, cfg, res, ignoredSet)
		return
	}

	compareLeaf(path, golden, candidate, cfg, res, ignoredSet)
}

func walkMap(path string, golden, candidate map[string]interface{}, cfg Config, res *Result, ignoredSet map[string]bool) {
	for key, gv := range golden {
		childPath := joinPath(path, key)
		cv, present := candidate[key]
		if !present {
			recordOrIgnore(childPath, Difference{
				Kind:        KindRemoved,
				Path:        childPath,
				GoldenValue: gv,
				Message:     fmt.Sprintf("%q present in golden, missing in candidate", childPath),
			}, cfg, res, ignoredSet)
			continue
		}
		walkDiff(childPath, gv, cv, cfg, res, ignoredSet)
	}

	for key, cv := range candidate {
		if _, present := golden[key]; present {
			continue
		}
		childPath := joinPath(path, key)
		recordOrIgnore(childPath, Difference{
			Kind:           KindAdded,
			Path:           childPath,
			CandidateValue: cv,
			Message:        fmt.Sprintf("%q present in candidate, missing in golden", childPath),
		}, cfg, res, ignoredSet)
	}
}

// walkArray compares arrays order-insensitively when elements are
// scalars comparable by equality, falling back to positional comparison
// for structural elements. Extra trailing elements on either side are
// reported as removals/additions.
func walkArray(path string, golden, candidate []interface{}, cfg Config, res *Result, ignoredSet map[string]bool) {
	if len(golden) == len(candidate) && allScalar(golden) && allScalar(candidate) &&
		orderInsensitiveEqual(golden, candidate) {
		return
	}

	common := len(golden)
	if len(candidate) < common {
		common = len(candidate)
	}
	for i := 0; i < common; i++ {
		childPath := fmt.Sprintf("%s[%d]", path, i)
		walkDiff(childPath, golden[i], candidate[i], cfg, res, ignoredSet)
	}
	for i := common; i < len(golden); i++ {
		childPath := fmt.Sprintf("%s[%d]", path, i)
		recordOrIgnore(childPath, Difference{
			Kind:        KindRemoved,
			Path:        childPath,
			GoldenValue: golden[i],
			Message:     fmt.Sprintf("%q present in golden, missing in candidate", childPath),
		}, cfg, res, ignoredSet)
	}
	for i := common; i < len(candidate); i++ {
		childPath := fmt.Sprintf("%s[%d]", path, i)
		recordOrIgnore(childPath, Difference{
			Kind:           KindAdded,
			Path:           childPath,
			CandidateValue: candidate[i],
			Message:        fmt.Sprintf("%q present in candidate, missing in golden", childPath),
		}, cfg, res, ignoredSet)
	}
}

func allScalar(items []interface{}) bool {
	for _, v := range items {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return false
		}
	}
	return true
}

func orderInsensitiveEqual(golden, candidate []interface{}) bool {
	if len(golden) != len(candidate) {
		return false
	}
	remaining := append([]interface{}{}, candidate...)
	for _, gv := range golden {
		matched := -1
		for i, cv := range remaining {
			if fmt.Sprintf("%v", gv) == fmt.Sprintf("%v", cv) {
				matched = i
				break
			}
		}
		if matched == -1 {
			return false
		}
		remaining = append(remaining[:matched], remaining[matched+1:]...)
	}
	return true
}

func compareLeaf(path string, golden, candidate interface{}, cfg Config, res *Result, ignoredSet map[string]bool) {
	gNum, gIsNum := isNumeric(golden)
	cNum, cIsNum := isNumeric(candidate)

	if gIsNum && cIsNum {
		if matchesAnyField(path, cfg.IgnorePaths) {
			ignoredSet[path] = true
			return
		}
		if matchesAnyField(path, cfg.MoneyPaths) {
			if !approxEqual(gNum, cNum, cfg.MoneyTolerance) {
				res.Differences = append(res.Differences, Difference{
					Kind:           KindMoneyToleranceExceed,
					Path:           path,
					GoldenValue:    golden,
					CandidateValue: candidate,
					Message:        fmt.Sprintf("%q money difference %.4f exceeds tolerance %.4f", path, gNum-cNum, cfg.MoneyTolerance),
				})
			} else {
				ignoredSet[path] = true
			}
			return
		}
		if approxEqual(gNum, cNum, cfg.FloatTolerance) {
			if gNum != cNum {
				ignoredSet[path] = true
			}
			return
		}
		recordOrIgnore(path, Difference{
			Kind:           KindValueChanged,
			Path:           path,
			GoldenValue:    golden,
			CandidateValue: candidate,
			Message:        fmt.Sprintf("%q value differs: golden=%v candidate=%v", path, golden, candidate),
		}, cfg, res, ignoredSet)
		return
	}

	if typeName(golden) != typeName(candidate) {
		recordOrIgnore(path, Difference{
			Kind:           KindTypeChanged,
			Path:           path,
			GoldenValue:    golden,
			CandidateValue: candidate,
			Message:        fmt.Sprintf("%q type changed: golden=%s candidate=%s", path, typeName(golden), typeName(candidate)),
		}, cfg, res, ignoredSet)
		return
	}

	if fmt.Sprintf("%v", golden) != fmt.Sprintf("%v", candidate) {
		recordOrIgnore(path, Difference{
			Kind:           KindValueChanged,
			Path:           path,
			GoldenValue:    golden,
			CandidateValue: candidate,
			Message:        fmt.Sprintf("%q value differs: golden=%v candidate=%v", path, golden, candidate),
		}, cfg, res, ignoredSet)
	}
}

// recordOrIgnore appends d to res.Differences unless path matches an
// ignore pattern, in which case it is recorded in ignoredSet instead.
func recordOrIgnore(path string, d Difference, cfg Config, res *Result, ignoredSet map[string]bool) {
	if matchesAnyField(path, cfg.IgnorePaths) {
		ignoredSet[path] = true
		return
	}
	res.Differences = append(res.Differences, d)
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
