package rodsnap

// snapshotScript serialises the laid-out document into the render.Snapshot
// JSON shape. Every element is remembered in window.__heroprintIds so later
// hit tests can map document.elementFromPoint back to a snapshot id.
const snapshotScript = `(maxNodes) => {
  const ids = new Map();
  window.__heroprintIds = ids;
  let next = 0;
  const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'META', 'LINK', 'TITLE']);
  const sx = window.scrollX, sy = window.scrollY;

  const styleOf = (el) => {
    const cs = getComputedStyle(el);
    return {
      display: cs.display, position: cs.position, visibility: cs.visibility,
      opacity: cs.opacity, fontSize: cs.fontSize, fontWeight: cs.fontWeight,
      textAlign: cs.textAlign, color: cs.color, backgroundColor: cs.backgroundColor,
      backgroundImage: cs.backgroundImage === 'none' ? '' : cs.backgroundImage,
      animationName: cs.animationName === 'none' ? '' : cs.animationName,
    };
  };

  const walk = (el) => {
    if (next >= maxNodes || skip.has(el.tagName)) return null;
    const id = ++next;
    ids.set(el, id);
    const r = el.getBoundingClientRect();
    const attrs = {};
    for (const a of el.attributes) attrs[a.name.toLowerCase()] = a.value;
    const out = {
      id, tag: el.tagName.toLowerCase(), attrs, style: styleOf(el),
      box: { top: r.top + sy, left: r.left + sx, width: r.width, height: r.height },
      children: [],
    };
    const kids = el.shadowRoot ? [...el.shadowRoot.childNodes, ...el.childNodes] : el.childNodes;
    for (const c of kids) {
      if (c.nodeType === Node.TEXT_NODE) {
        if (c.textContent.trim() !== '') out.children.push({ tag: '#text', text: c.textContent });
      } else if (c.nodeType === Node.ELEMENT_NODE) {
        const child = walk(c);
        if (child) out.children.push(child);
      }
    }
    return out;
  };

  const globals = [];
  try {
    const frame = document.createElement('iframe');
    frame.style.display = 'none';
    document.documentElement.appendChild(frame);
    const baseline = new Set(Object.getOwnPropertyNames(frame.contentWindow));
    frame.remove();
    for (const k of Object.getOwnPropertyNames(window)) {
      if (!baseline.has(k) && k !== '__heroprintIds') globals.push(k);
    }
  } catch (e) {}

  const meta = {};
  for (const m of document.querySelectorAll('meta[name], meta[property]')) {
    const k = (m.getAttribute('name') || m.getAttribute('property')).toLowerCase();
    meta[k] = m.getAttribute('content') || '';
  }

  return JSON.stringify({
    url: location.href,
    title: document.title,
    viewport: { width: window.innerWidth, height: window.innerHeight },
    scripts: [...document.scripts].map(s => s.src).filter(Boolean),
    globals,
    meta,
    root: walk(document.documentElement),
  });
}`

// hitScript resolves the snapshot id of the topmost element at a page
// coordinate, scrolling so the point is inside the viewport. It returns 0
// when nothing registered is hit.
const hitScript = `(x, y) => {
  const ids = window.__heroprintIds;
  if (!ids) return -1;
  window.scrollTo(0, Math.max(0, y - window.innerHeight / 2));
  let el = document.elementFromPoint(x - window.scrollX, y - window.scrollY);
  while (el && !ids.has(el)) el = el.parentElement;
  return el ? ids.get(el) : 0;
}`
