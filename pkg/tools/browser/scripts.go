package browser

// Page scripts evaluated in the browser.

const visibleInputsScript = `() => {
  const els = document.querySelectorAll('input, textarea, button');
  return Array.from(els).filter(e => {
    const rect = e.getBoundingClientRect();
    return rect.width > 0 && rect.height > 0 && (e.offsetParent !== null);
  }).map(e => ({
    tag: e.tagName.toLowerCase(),
    type: (e.type || '').toLowerCase(),
    placeholder: (e.placeholder || '').trim(),
    name: (e.name || '').trim(),
    id: (e.id || '').trim(),
    text: e.tagName.toLowerCase() === 'button' ? (e.textContent || '').trim().slice(0, 80) : ''
  }));
}`

const clickByTextScript = `(needle) => {
  const norm = (s) => (s || "").replace(/\s+/g, "").trim();
  const n = norm(needle);
  const nodes = document.querySelectorAll("button, a, [role='button'], div, span");
  for (const el of nodes) {
    const txt = norm(el.innerText || el.textContent || "");
    if (!txt || !txt.includes(n)) continue;
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    if (rect.width <= 0 || rect.height <= 0) continue;
    if (style.visibility === "hidden" || style.display === "none") continue;
    el.click();
    return true;
  }
  return false;
}`

// checkAgreementScript looks for the consent checkbox next to agreement
// wording, then a small icon left of the wording, then the wording itself,
// then any visible native checkbox.
const checkAgreementScript = `() => {
  const isVisible = (el) => {
    const rect = el.getBoundingClientRect();
    const st = window.getComputedStyle(el);
    return rect.width > 0 && rect.height > 0 && st.visibility !== "hidden" && st.display !== "none";
  };
  const keys = ["我已阅读并同意", "同意", "用户协议", "隐私政策", "青少年个人信息保护规则"];
  const norm = (s) => (s || "").replace(/\s+/g, "");
  const hasKey = (txt) => { const n = norm(txt); return keys.some((k) => n.includes(norm(k))); };
  const tryClick = (el) => {
    if (!el || !isVisible(el)) return false;
    try { el.click(); return true; } catch (_) { return false; }
  };
  const checkboxLike = (scope) => {
    if (!scope) return [];
    const sels = ['input[type="checkbox"]', '[role="checkbox"]', '[aria-checked]', '.checkbox',
      '[class*="checkbox"]', '[class*="check"]', '[class*="agree"]', '[class*="protocol"]'];
    return Array.from(scope.querySelectorAll(sels.join(","))).filter(isVisible);
  };
  const anchors = Array.from(document.querySelectorAll("label, span, div, p, a, li")).filter(
    (el) => isVisible(el) && hasKey(el.innerText || el.textContent || ""));
  for (const anchor of anchors) {
    const scopes = [anchor, anchor.parentElement, anchor.parentElement?.parentElement].filter(Boolean);
    for (const scope of scopes) {
      for (const cb of checkboxLike(scope)) {
        if (cb.tagName.toLowerCase() === "input" && cb.type === "checkbox") {
          if (cb.checked) return { clicked: true, method: "already_checked" };
          if (cb.disabled) continue;
          if (cb.id) {
            const label = document.querySelector('label[for="' + cb.id + '"]');
            if (tryClick(label) || tryClick(cb)) return { clicked: true, method: "checkbox_input_or_label" };
          } else if (tryClick(cb)) {
            return { clicked: true, method: "checkbox_input" };
          }
        } else if (tryClick(cb)) {
          return { clicked: true, method: "checkbox_like" };
        }
      }
    }
    const row = anchor.closest("label, div, p, li, section") || anchor.parentElement;
    if (row) {
      const rowRect = row.getBoundingClientRect();
      const aRect = anchor.getBoundingClientRect();
      const candidates = Array.from(row.querySelectorAll("*")).filter((el) => {
        if (!isVisible(el)) return false;
        const r = el.getBoundingClientRect();
        const squareLike = r.width >= 8 && r.height >= 8 && r.width <= 32 && r.height <= 32;
        const leftOfText = r.right <= aRect.left + 8;
        const nearRow = Math.abs(r.top - rowRect.top) < 30 || Math.abs(r.bottom - rowRect.bottom) < 30;
        return squareLike && leftOfText && nearRow;
      });
      for (const c of candidates) {
        if (tryClick(c)) return { clicked: true, method: "left_icon_fallback" };
      }
    }
    if (tryClick(anchor)) return { clicked: true, method: "anchor_text_fallback" };
  }
  for (const box of Array.from(document.querySelectorAll('input[type="checkbox"]')).filter(isVisible)) {
    if (box.checked) return { clicked: true, method: "already_checked_global" };
    if (!box.disabled && tryClick(box)) return { clicked: true, method: "checkbox_global_fallback" };
  }
  return { clicked: false, method: "not_found" };
}`
