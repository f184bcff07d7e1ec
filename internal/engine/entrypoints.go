package engine

import (
	"strings"

	"github.com/roach88/pathminer/internal/cfg"
	"github.com/roach88/pathminer/internal/ir"
)

// ActivityClass is the framework class whose callbacks are entry points.
const ActivityClass = "android.app.Activity"

// skippedPrefixes name platform packages whose methods are never walked.
var skippedPrefixes = []string{"android.", "com.google."}

// activityCallbacks are the Activity methods the framework calls.
var activityCallbacks = map[string]bool{
	"onActionModeFinished":             true,
	"onActionModeStarted":              true,
	"onActivityReenter":                true,
	"onActivityResult":                 true,
	"onApplyThemeResource":             true,
	"onAttachFragment":                 true,
	"onAttachedToWindow":               true,
	"onBackPressed":                    true,
	"onChildTitleChanged":              true,
	"onConfigurationChanged":           true,
	"onContentChanged":                 true,
	"onContextItemSelected":            true,
	"onContextMenuClosed":              true,
	"onCreate":                         true,
	"onCreateContextMenu":              true,
	"onCreateDescription":              true,
	"onCreateDialog":                   true,
	"onCreateNavigateUpTaskStack":      true,
	"onCreateOptionsMenu":              true,
	"onCreatePanelMenu":                true,
	"onCreatePanelView":                true,
	"onCreateThumbnail":                true,
	"onCreateView":                     true,
	"onDestroy":                        true,
	"onDetachedFromWindow":             true,
	"onEnterAnimationComplete":         true,
	"onGenericMotionEvent":             true,
	"onKeyDown":                        true,
	"onKeyLongPress":                   true,
	"onKeyMultiple":                    true,
	"onKeyShortcut":                    true,
	"onKeyUp":                          true,
	"onLowMemory":                      true,
	"onMenuItemSelected":               true,
	"onMenuOpened":                     true,
	"onNavigateUp":                     true,
	"onNavigateUpFromChild":            true,
	"onNewIntent":                      true,
	"onOptionsItemSelected":            true,
	"onOptionsMenuClosed":              true,
	"onPanelClosed":                    true,
	"onPause":                          true,
	"onPostCreate":                     true,
	"onPostResume":                     true,
	"onPrepareDialog":                  true,
	"onPrepareNavigateUpTaskStack":     true,
	"onPrepareOptionsMenu":             true,
	"onPreparePanel":                   true,
	"onProvideAssistContent":           true,
	"onProvideAssistData":              true,
	"onProvideReferrer":                true,
	"onRequestPermissionsResult":       true,
	"onRestart":                        true,
	"onRestoreInstanceState":           true,
	"onResume":                         true,
	"onRetainNonConfigurationInstance": true,
	"onSaveInstanceState":              true,
	"onSearchRequested":                true,
	"onStart":                          true,
	"onStateNotSaved":                  true,
	"onStop":                           true,
	"onTitleChanged":                   true,
	"onTouchEvent":                     true,
	"onTrackballEvent":                 true,
	"onTrimMemory":                     true,
	"onUserInteraction":                true,
	"onUserLeaveHint":                  true,
	"onVisibleBehindCanceled":          true,
	"onWindowAttributesChanged":        true,
	"onWindowFocusChanged":             true,
	"onWindowStartingActionMode":       true,
}

// IsSkippedClass reports whether methods of the class are never walked.
func IsSkippedClass(class string) bool {
	for _, p := range skippedPrefixes {
		if strings.HasPrefix(class, p) {
			return true
		}
	}
	return false
}

// IsEntryPoint reports whether m overrides an Activity callback: its class
// strictly descends from android.app.Activity and its name is a callback.
func IsEntryPoint(p cfg.Program, m ir.Method) bool {
	if !activityCallbacks[m.Name] {
		return false
	}
	for _, a := range cfg.Ancestors(p, m.Class) {
		if a == ActivityClass {
			return true
		}
	}
	return false
}

// IsRelevantApp reports whether the program knows at least one of the
// tracked types. With no type restriction every program is relevant.
func IsRelevantApp(p cfg.Program, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if p.HasClass(t) {
			return true
		}
	}
	return false
}

// SelectMethods returns the methods walked by a run, in program order.
func SelectMethods(p cfg.Program, entryPoints bool) []ir.Method {
	var out []ir.Method
	for _, m := range p.Methods() {
		if IsSkippedClass(m.Class) {
			continue
		}
		if entryPoints && !IsEntryPoint(p, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}
